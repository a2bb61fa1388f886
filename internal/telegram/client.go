package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dealer_crm_backend/platform/config"
	"dealer_crm_backend/platform/logger"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured is returned by a nil client (no bot token).
var ErrNotConfigured = errors.New("telegram bot is not configured")

// APIError is a Bot API response with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s failed (%d): %s", e.Method, e.Code, e.Description)
}

type Client struct {
	http *resty.Client
	log  *logger.Logger
}

// NewClient returns nil when no bot token is configured. All methods are nil-safe.
func NewClient(cfg config.TelegramConfig, log *logger.Logger) *Client {
	if !cfg.IsTelegramEnabled() {
		return nil
	}

	baseURL := strings.TrimRight(cfg.GetTelegramAPIURL(), "/") + "/bot" + cfg.GetTelegramBotToken()
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, log: log}
}

// SendMessage posts a message and returns its id.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (int64, error) {
	if c == nil {
		return 0, ErrNotConfigured
	}

	result, err := c.call(ctx, "sendMessage", req)
	if err != nil {
		return 0, err
	}

	var msg Message
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, fmt.Errorf("decode sendMessage result: %w", err)
	}
	return msg.MessageID, nil
}

// ClearReplyMarkup removes the inline menu from a sent message.
func (c *Client) ClearReplyMarkup(ctx context.Context, chatID, messageID int64) error {
	if c == nil {
		return ErrNotConfigured
	}
	_, err := c.call(ctx, "editMessageReplyMarkup", editReplyMarkupRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: EmptyKeyboard(),
	})
	return err
}

// AnswerCallbackQuery shows a short toast to the user who pressed a button.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	if c == nil {
		return ErrNotConfigured
	}
	_, err := c.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

// SetWebhook registers the webhook URL. Telegram echoes secret in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	if c == nil {
		return ErrNotConfigured
	}
	_, err := c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	return err
}

func (c *Client) call(ctx context.Context, method string, body any) (json.RawMessage, error) {
	var response apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response).
		SetError(&response).
		Post("/" + method)
	if err != nil {
		return nil, fmt.Errorf("telegram %s request failed: %w", method, err)
	}

	if !response.OK {
		code := response.ErrorCode
		if code == 0 {
			code = resp.StatusCode()
		}
		if c.log != nil {
			c.log.Warn("telegram api returned error", "method", method, "code", code, "description", response.Description)
		}
		return nil, &APIError{Method: method, Code: code, Description: response.Description}
	}

	return response.Result, nil
}
