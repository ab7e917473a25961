package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/auth"
)

// studio-token mints an HS256 bearer token for local testing against studio-service.
func main() {
	var (
		secret   = flag.String("secret", getenv("JWT_SECRET", ""), "HS256 signing secret shared with studio-service")
		subject  = flag.String("sub", "local-user", "user id")
		role     = flag.String("role", "admin", "admin, artist or assistant")
		artistID = flag.Int64("artist-id", 0, "artist id linked to the user (artists only)")
		ttl      = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("JWT_SECRET is required")
	}
	switch *role {
	case "admin", "artist", "assistant":
	default:
		fatal("role must be admin, artist or assistant")
	}
	if *role == "artist" && *artistID <= 0 {
		fatal("artist tokens need -artist-id")
	}

	now := time.Now().UTC()
	token, err := auth.SignHS256(auth.Claims{
		Sub:      *subject,
		Role:     *role,
		ArtistID: *artistID,
		Iat:      now.Unix(),
		Exp:      now.Add(*ttl).Unix(),
	}, *secret)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Println(token)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
