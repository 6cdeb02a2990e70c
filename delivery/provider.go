package delivery

import (
	"context"
	"fmt"
	"log"
)

// Metadata describes the exported range for the delivery message.
type Metadata struct {
	BookName string
	From     int
	To       int
}

// Provider is the adapter interface for delivery sinks. Implement this to
// add new sink types (webhook, email, etc.).
type Provider interface {
	// Type returns the sink type this provider handles (e.g. "discord").
	Type() string
	// Deliver sends the EPUB at filePath to the sink.
	Deliver(ctx context.Context, filePath string, meta Metadata) error
}

// Service routes finished documents to the configured sink.
type Service struct {
	sinkType  string
	providers map[string]Provider
}

func NewService(sinkType string, providers ...Provider) *Service {
	providerMap := make(map[string]Provider, len(providers))
	for _, p := range providers {
		providerMap[p.Type()] = p
	}
	return &Service{sinkType: sinkType, providers: providerMap}
}

// Deliver sends the file through the configured provider.
func (s *Service) Deliver(ctx context.Context, filePath string, meta Metadata) error {
	provider, ok := s.providers[s.sinkType]
	if !ok {
		return fmt.Errorf("no delivery provider registered for sink type %q", s.sinkType)
	}

	if err := provider.Deliver(ctx, filePath, meta); err != nil {
		log.Printf("ERROR (DeliveryService): %s delivery of %q failed: %v", s.sinkType, meta.BookName, err)
		return err
	}

	log.Printf("INFO (DeliveryService): Delivered %q chapters %d-%d via %s", meta.BookName, meta.From, meta.To, s.sinkType)
	return nil
}
