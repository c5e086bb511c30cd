package redis

const (
	keyPrefix = "nonprofit/"

	// KeyPrefixSearchCache is the key prefix for cached search results
	KeyPrefixSearchCache = keyPrefix + "search/"
)
