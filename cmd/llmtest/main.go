package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"

	"github.com/medassist-ai/triage-platform/internal/llm"
)

// Smoke test for the configured LLM providers. Sends one short
// conversation to each and prints the reply and token usage.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := llm.Request{
		System: []string{
			"You are a hospital assistant. Keep responses brief and helpful.",
		},
		Messages: []llm.ChatMessage{
			{Role: llm.ChatRoleUser, Content: "Hi, I'd like to book a cardiology appointment. What do you need from me?"},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	fmt.Println("LLM Provider Test")

	if modelID := os.Getenv("BEDROCK_MODEL_ID"); modelID != "" {
		fmt.Println("\n[1] Testing Bedrock...")
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			fmt.Printf("    failed to load AWS config: %v\n", err)
		} else {
			client := llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg))
			bedrockReq := req
			bedrockReq.Model = modelID
			runTest(ctx, client, bedrockReq)
		}
	} else {
		fmt.Println("\n[1] Skipping Bedrock test (BEDROCK_MODEL_ID not set)")
	}

	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		fmt.Println("\n[2] Testing Gemini...")
		client, err := llm.NewGeminiClient(ctx, apiKey, os.Getenv("GEMINI_MODEL_ID"))
		if err != nil {
			fmt.Printf("    failed to create Gemini client: %v\n", err)
		} else {
			defer func() { _ = client.Close() }()
			runTest(ctx, client, req)
		}
	} else {
		fmt.Println("\n[2] Skipping Gemini test (GEMINI_API_KEY not set)")
	}
}

func runTest(ctx context.Context, client llm.Client, req llm.Request) {
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Printf("    error: %v\n", err)
		return
	}
	fmt.Printf("    response (%v):\n    %s\n", elapsed.Round(time.Millisecond), resp.Text)
	fmt.Printf("    tokens: in=%d, out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
}
