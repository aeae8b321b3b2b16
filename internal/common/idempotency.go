package common

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// CodeIdempotentReplay is returned when an Idempotency-Key is reused.
const CodeIdempotentReplay = "IDEMPOTENT_REPLAY"

// Idem provides an Idempotency-Key middleware backed by Redis. Keys are
// scoped by user and route so clients cannot collide with each other.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(userID, path, key string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + path + "\x00" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware rejects a repeated Idempotency-Key with 409 while the first
// request's key is held. Requests without the header pass through.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, _ := UserID(r.Context())
		key := hashKey(userID, r.URL.Path, header)
		ok, err := i.R.SetNX(r.Context(), key, "locked", i.ttl()).Result()
		if err != nil {
			WriteError(w, NewDependencyError("idempotency store error", err))
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, CodeIdempotentReplay, "duplicate request", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}
