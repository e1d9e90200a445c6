// Package notify decides who is told about a change and delivers those
// notifications asynchronously.
//
// Services build Messages while handling a request and hand them to a
// Dispatcher once their transaction has committed. A Worker consumes the
// queue: it stores each message once, keyed by its dispatch key, and then
// tries to push it over the recipient's realtime connection.
package notify

import (
	"github.com/google/uuid"
	"github.com/yukikurage/projecthub-api/internal/models"
)

const RoutingKey = "notification.created"

// Message is one notification addressed to one user.
type Message struct {
	DispatchKey    string                  `json:"dispatch_key"`
	OrganizationID uint64                  `json:"organization_id"`
	RecipientID    uint64                  `json:"recipient_id"`
	Type           models.NotificationType `json:"type"`
	Title          string                  `json:"title"`
	Body           string                  `json:"body"`
	EntityType     string                  `json:"entity_type"`
	EntityID       uint64                  `json:"entity_id"`
}

func newMessage(orgID, recipientID uint64, typ models.NotificationType, title, body, entityType string, entityID uint64) Message {
	return Message{
		DispatchKey:    uuid.NewString(),
		OrganizationID: orgID,
		RecipientID:    recipientID,
		Type:           typ,
		Title:          title,
		Body:           body,
		EntityType:     entityType,
		EntityID:       entityID,
	}
}

func (m Message) notification() *models.Notification {
	return &models.Notification{
		OrganizationID: m.OrganizationID,
		UserID:         m.RecipientID,
		Type:           m.Type,
		Title:          m.Title,
		Body:           m.Body,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		DispatchKey:    m.DispatchKey,
	}
}
