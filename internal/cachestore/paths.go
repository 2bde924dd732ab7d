package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"gamesort/internal/keys"
	"gamesort/internal/textutil"
)

const titleBucket = "titles"

// DocumentID returns the stable document identifier for a record.
func DocumentID(platform, identifier string) string {
	return normalizePlatform(platform) + ":" + keys.NormalizeIdentifier(identifier)
}

// DocumentPath returns the slash-separated export path for a record.
// Codes shard by their first two digits (dlsite/01/RJ01234567.json); titles
// land in a shared bucket under a filesystem-safe token suffixed with a short
// hash of the identifier, since distinct titles can share a token.
func DocumentPath(platform, identifier string) string {
	platform = normalizePlatform(platform)
	id := keys.NormalizeIdentifier(identifier)
	if keys.IsCode(id) {
		return path.Join(platform, id[2:4], id+".json")
	}
	sum := sha256.Sum256([]byte(id))
	return path.Join(platform, titleBucket, textutil.SanitizeToken(id)+"-"+hex.EncodeToString(sum[:4])+".json")
}

func normalizePlatform(platform string) string {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		return "unknown"
	}
	return textutil.SanitizeToken(platform)
}
