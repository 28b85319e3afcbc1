// Package discord publishes notifications through Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memberwatch/internal/transport"
	logx "memberwatch/pkg/logx"
)

var ErrStatus = errors.New("discord: unexpected status")

const maxBody = 64 << 10

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type executeBody struct {
	Embeds []embed `json:"embeds"`
}

type Config struct {
	// APIBase replaces the base parsed from each target when set.
	APIBase string
}

// Publisher implements transport.Publisher for webhook targets.
type Publisher struct {
	client *http.Client
	base   string
	log    logx.Logger
}

func New(cfg Config, client *http.Client, log logx.Logger) *Publisher {
	if client == nil {
		client = http.DefaultClient
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Publisher{client: client, base: strings.TrimSuffix(strings.TrimSpace(cfg.APIBase), "/"), log: log}
}

func (p *Publisher) webhookURL(to transport.Target) (string, error) {
	if to.Kind != transport.KindDiscord || to.WebhookID == "" || to.WebhookToken == "" {
		return "", fmt.Errorf("%w: not a discord webhook", transport.ErrInvalidTarget)
	}
	base := p.base
	if base == "" {
		base = to.APIBase
	}
	return base + "/webhooks/" + url.PathEscape(to.WebhookID) + "/" + url.PathEscape(to.WebhookToken), nil
}

// Post executes the webhook with wait=true so Discord returns the created message.
func (p *Publisher) Post(ctx context.Context, to transport.Target, n transport.Notification) (string, error) {
	u, err := p.webhookURL(to)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(executeBody{Embeds: []embed{toEmbed(n)}})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u+"?wait=true", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("discord: post to %s: %w", to, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, raw)
	}

	var msg struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", fmt.Errorf("discord: decode message: %w", err)
	}
	if msg.ID == "" {
		return "", transport.ErrEmptyResponse
	}
	p.log.Debug("webhook message posted", logx.String("target", to.String()), logx.String("message_id", msg.ID))
	return msg.ID, nil
}

// Delete removes a message previously created by the same webhook.
func (p *Publisher) Delete(ctx context.Context, to transport.Target, messageID string) error {
	u, err := p.webhookURL(to)
	if err != nil {
		return err
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return fmt.Errorf("discord: empty message id")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u+"/messages/"+url.PathEscape(messageID), http.NoBody)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: delete on %s: %w", to, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", transport.ErrNotFound, messageID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return statusError(resp.StatusCode, raw)
	}
	p.log.Debug("webhook message deleted", logx.String("target", to.String()), logx.String("message_id", messageID))
	return nil
}

func toEmbed(n transport.Notification) embed {
	e := embed{Title: n.Title, Description: n.Description, Color: n.Color}
	for _, f := range n.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if !n.Timestamp.IsZero() {
		e.Timestamp = n.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return e
}

func statusError(code int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Errorf("%w: %d", ErrStatus, code)
	}
	return fmt.Errorf("%w: %d: %s", ErrStatus, code, msg)
}
