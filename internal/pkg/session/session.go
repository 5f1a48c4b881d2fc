package session

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"
)

// NewSessionStore keeps sessions in redis database 1 on the same server as
// the cache client.
func NewSessionStore(cacheClient *goredis.Client, secure bool) *session.Store {
	host := "localhost"
	port := 6379
	password := ""
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		password = cacheClient.Options().Password
	}

	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	return session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
		Expiration:     time.Hour * 24,
		KeyLookup:      "cookie:session_id",
	})
}
