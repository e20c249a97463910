package tyres

import (
	"context"
	"time"

	"github.com/WessleyAI/tyrefit/engine/domain"
	"github.com/WessleyAI/tyrefit/pkg/natsutil"
	"github.com/gofrs/uuid"
)

const (
	// LookupSubject is the default NATS subject for lookup events.
	LookupSubject = "tyres.lookups"
	// EnrichSubject is the NATS request/reply subject for tyre lookups.
	EnrichSubject = "tyres.enrich"
)

// LookupRequest asks for the enriched tyres of a modification, over HTTP or
// on EnrichSubject.
type LookupRequest struct {
	ID domain.ID `json:"id"`
}

// LookupEvent summarises one enrichment for downstream consumers.
type LookupEvent struct {
	ID             string    `json:"id"`
	ModificationID domain.ID `json:"modification_id"`
	Tyres          int       `json:"tyres"`
	Available      int       `json:"available"`
	Status         string    `json:"status"`
	At             time.Time `json:"at"`
}

// Notifier receives lookup events.
type Notifier interface {
	Notify(ctx context.Context, ev LookupEvent) error
}

// NATSNotifier publishes lookup events as JSON on a NATS subject.
type NATSNotifier struct {
	nc      natsutil.Conn
	subject string
}

// NewNATSNotifier creates a notifier. An empty subject selects LookupSubject.
func NewNATSNotifier(nc natsutil.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = LookupSubject
	}
	return &NATSNotifier{nc: nc, subject: subject}
}

// Notify implements Notifier.
func (n *NATSNotifier) Notify(ctx context.Context, ev LookupEvent) error {
	return natsutil.Publish(ctx, n.nc, n.subject, ev)
}

func (s *Service) notify(ctx context.Context, modificationID domain.ID, status string, tyres []domain.EnrichedTyre) {
	if s.notifier == nil {
		return
	}
	ev := LookupEvent{
		ModificationID: modificationID,
		Tyres:          len(tyres),
		Status:         status,
		At:             time.Now().UTC(),
	}
	if id, err := uuid.NewV4(); err == nil {
		ev.ID = id.String()
	}
	for _, t := range tyres {
		if t.Product.Available {
			ev.Available++
		}
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("lookup event not published", "modification_id", modificationID, "err", err)
	}
}
