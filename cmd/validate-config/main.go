package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/healthlens-ai/backend/internal/config"
)

func main() {
	fmt.Println("🔍 Validating configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Configuration is invalid:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Configuration is valid!")
	fmt.Printf("📋 Details:\n")
	fmt.Printf("  - Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  - Allowed Origins: %s\n", strings.Join(cfg.Server.AllowedOrigins, ", "))
	fmt.Printf("  - DB Host: %s\n", cfg.DB.Host)
	fmt.Printf("  - DB Port: %s\n", cfg.DB.Port)
	fmt.Printf("  - DB User: %s\n", cfg.DB.User)
	fmt.Printf("  - DB Name: %s\n", cfg.DB.DBName)
	if addr := cfg.Redis.Addr(); addr != "" {
		fmt.Printf("  - Redis: %s\n", addr)
	} else {
		fmt.Printf("  - Redis: <not configured, in-process cache>\n")
	}
	fmt.Printf("  - AI Provider: %s\n", cfg.AI.Provider)
	fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.AI.GeminiAPIKey))
	fmt.Printf("  - OpenAI API Key: %s\n", maskToken(cfg.AI.OpenAIAPIKey))
	fmt.Printf("  - Auth UserInfo URL: %s\n", cfg.Auth.UserInfoURL)
	if cfg.Storage.Endpoint != "" {
		fmt.Printf("  - Storage: %s (bucket %s)\n", cfg.Storage.Endpoint, cfg.Storage.Bucket)
		fmt.Printf("  - Storage Access Key: %s\n", maskToken(cfg.Storage.AccessKey))
	} else {
		fmt.Printf("  - Storage: <not configured, uploads not archived>\n")
	}
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
