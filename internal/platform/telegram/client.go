package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.telegram.org"

type Client struct {
	Token      string
	BaseURL    string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		Token:   token,
		BaseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendMessageReq struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// SendMessage posts plain text; Markdown is left off so ids with
// underscores go through unchanged.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.Token)

	jsonBody, err := json.Marshal(sendMessageReq{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram api returned status: %s, body: %s", resp.Status, string(bodyBytes))
	}
	return nil
}

// Notifier tells the study coordinator chat that a survey came in. Only the
// device id and run id are sent, never answers.
type Notifier struct {
	client *Client
	chatID int64
	logger *zap.Logger
	now    func() time.Time
}

func NewNotifier(client *Client, chatID int64, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, chatID: chatID, logger: logger, now: time.Now}
}

func (n *Notifier) NotifySubmission(ctx context.Context, deviceID, runID string) error {
	text := fmt.Sprintf("New survey submission\nDevice: %s\nRun: %s\nReceived: %s",
		deviceID, runID, n.now().UTC().Format(time.RFC3339))
	if err := n.client.SendMessage(ctx, n.chatID, text); err != nil {
		return fmt.Errorf("notify coordinator: %w", err)
	}
	n.logger.Debug("coordinator notified", zap.String("device_id", deviceID), zap.String("run_id", runID))
	return nil
}
