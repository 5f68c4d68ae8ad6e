package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"
)

// Runs a single turn against a live server and saves the spoken reply.
// Needs CLIENT_KEY and CLIENT_SECRET; OPENAI_API_KEY, ELEVENLABS_API_KEY and
// VOICE_ID are stored as the configuration first when present.

const baseURL = "http://localhost:8080"

type JWTResponse struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

type MessageResponse struct {
	TurnID   string `json:"turn_id"`
	Status   string `json:"status"`
	Artifact *struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"artifact"`
}

func main() {
	fmt.Println("🚀 Starting turn test...")

	token, err := getJWTToken()
	if err != nil {
		log.Fatalf("Failed to get JWT token: %v", err)
	}
	fmt.Printf("✅ JWT token obtained: %s...\n", token[:20])

	if os.Getenv("OPENAI_API_KEY") != "" {
		if err := configure(token); err != nil {
			log.Fatalf("Failed to configure: %v", err)
		}
		fmt.Println("✅ Configuration stored")
	}

	text := "Hello"
	if len(os.Args) > 1 {
		text = os.Args[1]
	}
	resp, err := sendMessage(token, text)
	if err != nil {
		log.Fatalf("Turn failed: %v", err)
	}
	fmt.Printf("📊 Turn %s finished, status: %q\n", resp.TurnID, resp.Status)

	if resp.Artifact == nil {
		log.Fatalf("No audio produced")
	}
	if err := saveAudio(resp.Artifact.URL, "reply.mp3"); err != nil {
		log.Fatalf("Failed to download audio: %v", err)
	}

	fmt.Println("✅ Reply saved to reply.mp3")
}

func getJWTToken() (string, error) {
	req, err := http.NewRequest("POST", baseURL+"/api/v1/auth/token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("X-API-Key", os.Getenv("CLIENT_KEY"))
	req.Header.Set("X-API-Secret", os.Getenv("CLIENT_SECRET"))

	var jwtResp JWTResponse
	if err := call(req, 10*time.Second, &jwtResp); err != nil {
		return "", err
	}
	return jwtResp.Token, nil
}

func configure(token string) error {
	body, _ := sonic.Marshal(map[string]string{
		"openai_api_key":     os.Getenv("OPENAI_API_KEY"),
		"elevenlabs_api_key": os.Getenv("ELEVENLABS_API_KEY"),
		"voice_id":           os.Getenv("VOICE_ID"),
	})
	req, err := http.NewRequest("PUT", baseURL+"/api/v1/config", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return call(req, 10*time.Second, nil)
}

func sendMessage(token, text string) (MessageResponse, error) {
	var msgResp MessageResponse

	body, _ := sonic.Marshal(map[string]string{"text": text})
	req, err := http.NewRequest("POST", baseURL+"/api/v1/messages", bytes.NewReader(body))
	if err != nil {
		return msgResp, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	fmt.Printf("📤 Sending %q...\n", text)
	startTime := time.Now()
	err = call(req, 2*time.Minute, &msgResp)
	fmt.Printf("⏱️  Request completed in %v\n", time.Since(startTime))
	return msgResp, err
}

func saveAudio(path, dest string) error {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audio request failed with status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, resp.Body)
	return err
}

func call(req *http.Request, timeout time.Duration, out interface{}) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return sonic.Unmarshal(body, out)
}
