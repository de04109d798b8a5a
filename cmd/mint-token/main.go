// Command mint-token issues an access token signed with the server's
// JWT_SECRET, for trying the chat without a login flow.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/example/realtime-chat/config"
	"github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/google/uuid"
)

func main() {
	username := flag.String("user", "", "Username to issue the token for (letters and digits)")
	displayName := flag.String("name", "", "Display name shown in chat (defaults to the username)")
	userID := flag.String("id", "", "User ID claim (defaults to a random UUID)")
	flag.Parse()

	if err := chat.ValidateUsername(*username); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -user: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	if *userID == "" {
		*userID = uuid.NewString()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	tokens := auth.NewTokenManager(auth.TokenConfig{
		SecretKey:           cfg.JWTSecret,
		Issuer:              cfg.JWTIssuer,
		AccessTokenDuration: cfg.TokenTTL,
	})
	token, err := tokens.GenerateAccessToken(*userID, *username, *displayName)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
