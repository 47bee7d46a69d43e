package probes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"

	"pulsebar/internal/config"
	"pulsebar/internal/module"
)

const (
	defaultQuoteEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultQuoteModel    = "gpt-3.5-turbo"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type quoteClient struct {
	hc       *http.Client
	endpoint string
	model    string
	topics   string
	keyFile  string
}

// Quote asks a chat completions endpoint for a short quote on a random topic.
// Options: topics, key_file, endpoint, model.
func Quote(opts module.Options) module.Handler {
	q := &quoteClient{
		hc:       &http.Client{},
		endpoint: opts.Get("endpoint", defaultQuoteEndpoint),
		model:    opts.Get("model", defaultQuoteModel),
		topics:   config.ExpandPath(opts.Get("topics", "~/.config/sway/topics")),
		keyFile:  config.ExpandPath(opts.Get("key_file", "~/openai.key")),
	}
	return module.Handler{Probe: q.probe, Render: renderQuote}
}

func (q *quoteClient) probe(ctx context.Context) (module.Fields, error) {
	f, err := os.Open(q.topics)
	if err != nil {
		return nil, err
	}
	topic, ok := pickLine(f, rand.Intn)
	_ = f.Close()
	if !ok {
		return nil, errors.New("quote: topics file is empty")
	}
	key, err := os.ReadFile(q.keyFile)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Give me a very short inspirational quote about %s with a fictional author with a pun about %s", topic, topic)
	text, err := q.ask(ctx, strings.TrimSpace(string(key)), prompt)
	if err != nil {
		return nil, err
	}
	return module.Fields{"quote": text}, nil
}

func (q *quoteClient) ask(ctx context.Context, key, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    q.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := q.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("quote: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("quote: decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("quote: no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// pickLine selects one line uniformly with reservoir sampling.
// intn(n) must return a value in [0, n).
func pickLine(r io.Reader, intn func(int) int) (string, bool) {
	sc := bufio.NewScanner(r)
	var (
		picked string
		ok     bool
	)
	for i := 0; sc.Scan(); i++ {
		if intn(i+1) == 0 {
			picked, ok = sc.Text(), true
		}
	}
	return picked, ok
}

func renderQuote(f module.Fields) string {
	if q, ok := f["quote"]; ok {
		return q
	}
	return "ERROR!"
}
