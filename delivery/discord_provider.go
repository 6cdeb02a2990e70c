package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"
)

const (
	epubContentType = "application/epub+zip"
	epubFileName    = "book.epub"
	embedColor      = 0x91288A
	webhookTimeout  = 30 * time.Second
)

// DiscordProvider posts EPUB files to a Discord webhook as a multipart
// upload with an embed describing the exported range.
type DiscordProvider struct {
	webhookURL string
	client     *http.Client
}

func NewDiscordProvider(webhookURL string) *DiscordProvider {
	return &DiscordProvider{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

func (p *DiscordProvider) Type() string { return "discord" }

func (p *DiscordProvider) Deliver(ctx context.Context, filePath string, meta Metadata) error {
	fileBytes, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read epub file %s: %w", filePath, err)
	}

	message := discordMessage{
		Content: "Your book is ready!",
		Embeds: []discordEmbed{{
			Title:       meta.BookName,
			Type:        "file",
			Description: fmt.Sprintf("From chapter %d to chapter %d", meta.From, meta.To),
			Color:       embedColor,
			Fields:      []discordEmbedField{},
		}},
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, epubFileName, epubFileName))
	fileHeader.Set("Content-Type", epubContentType)
	filePart, err := writer.CreatePart(fileHeader)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := filePart.Write(fileBytes); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}

	if err := writer.WriteField("payload_json", string(payload)); err != nil {
		return fmt.Errorf("failed to write payload_json part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, &body)
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Discord webhook payload types.
type discordMessage struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Type        string              `json:"type"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields"`
}

type discordEmbedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
