package search

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/Laisky/errors/v2"
	jsoniter "github.com/json-iterator/go"
)

// keyJSON marshals maps with sorted keys, so the key does not depend on map iteration order.
var keyJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// GenerateKey derives the cache key for query and params as the hex SHA-256 of
// query + ":" + params encoded as JSON with sorted keys.
//
// It only fails when params holds a value that cannot be encoded as JSON.
func GenerateKey(query string, params map[string]any) (string, error) {
	encoded, err := keyJSON.Marshal(params)
	if err != nil {
		return "", errors.Wrap(err, "marshal cache key params")
	}

	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte(":"))
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}
