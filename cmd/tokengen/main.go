// Package main mints development session tokens for the ZeroPass API.
// Tokens are HS256 signed with CLERK_SECRET and are rejected by servers
// configured with CLERK_JWT_KEY.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "zeropass/internal/jwt_token"
	id "zeropass/pkg/domain"
)

const defaultTokenTTL = time.Hour

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	userID := flag.String("user-id", "", "Session subject (user_...). Generated if empty.")
	sessionID := flag.String("session-id", "", "Session ID claim. Generated if empty.")
	secret := flag.String("secret", os.Getenv("CLERK_SECRET"), "HS256 signing secret (defaults to CLERK_SECRET)")
	issuer := flag.String("issuer", os.Getenv("CLERK_ISSUER"), "iss claim")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "A signing secret is required: pass -secret or set CLERK_SECRET")
		os.Exit(1)
	}

	uid := *userID
	if uid == "" {
		uid = "user_dev" + uuid.NewString()[:8]
	}
	parsed, err := id.ParseUserID(uid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid user-id: %v\n", err)
		os.Exit(1)
	}
	sid := *sessionID
	if sid == "" {
		sid = "sess_" + uuid.NewString()
	}

	token, err := jwttoken.NewDevSigner(*secret, *issuer).Sign(context.Background(), parsed, sid, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"sub": parsed.String(),
				"sid": sid,
				"iss": *issuer,
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Session Token (JWT)")
	fmt.Println("===================")
	fmt.Printf("Expires In:  %s\n", *ttl)
	fmt.Printf("User ID:     %s\n", parsed)
	fmt.Printf("Session ID:  %s\n", sid)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/credential/status")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
