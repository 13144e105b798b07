package bot

import (
	"context"
	"fmt"

	"github.com/tempopay/bump/internal/models"
)

// ContactStore is the contact lookup surface the resolver needs.
type ContactStore interface {
	Get(ctx context.Context, ownerPhone, nickname string) (*models.Contact, error)
	Upsert(ctx context.Context, contact *models.Contact) error
	ListByOwner(ctx context.Context, ownerPhone string) ([]models.Contact, error)
}

// TagStore is the global tag lookup surface.
type TagStore interface {
	Get(ctx context.Context, name string) (*models.Tag, error)
	Claim(ctx context.Context, name, phone, address string) error
}

// ResolutionError reports a recipient token that could not be resolved.
// Its message is surfaced to the user verbatim.
type ResolutionError struct {
	Token   models.RecipientToken
	Message string
}

func (e *ResolutionError) Error() string { return e.Message }

// Recipient is a resolved payment destination. Address is set only when the
// token already carried one (tags); otherwise the dispatcher looks up the
// wallet by phone.
type Recipient struct {
	Phone   string
	Address string
	Display string
}

// Resolver maps sigil-tagged recipient tokens to canonical identities.
// Resolution is a pure read of contact/tag state; it never creates wallets.
type Resolver struct {
	contacts    ContactStore
	tags        TagStore
	countryCode string
}

// NewResolver creates a Resolver.
func NewResolver(contacts ContactStore, tags TagStore, countryCode string) *Resolver {
	return &Resolver{contacts: contacts, tags: tags, countryCode: countryCode}
}

// Resolve turns one recipient token into a canonical recipient.
func (r *Resolver) Resolve(ctx context.Context, ownerPhone string, token models.RecipientToken) (Recipient, error) {
	switch token.Kind {
	case models.TokenTag:
		tag, err := r.tags.Get(ctx, token.Value)
		if err != nil {
			return Recipient{}, err
		}
		if tag == nil {
			return Recipient{}, &ResolutionError{
				Token:   token,
				Message: fmt.Sprintf("Tag $%s not found", token.Value),
			}
		}
		return Recipient{Phone: tag.Phone, Address: tag.Address, Display: "$" + tag.Name}, nil

	case models.TokenNickname:
		contact, err := r.contacts.Get(ctx, ownerPhone, token.Value)
		if err != nil {
			return Recipient{}, err
		}
		if contact == nil {
			return Recipient{}, &ResolutionError{
				Token:   token,
				Message: fmt.Sprintf("Contact @%s not found. Save it with: ADD @%s +15551234567", token.Value, token.Value),
			}
		}
		return Recipient{Phone: contact.Phone, Display: "@" + contact.Nickname}, nil

	default:
		phone := models.NormalizePhone(token.Value, r.countryCode)
		return Recipient{Phone: phone, Display: phone}, nil
	}
}
