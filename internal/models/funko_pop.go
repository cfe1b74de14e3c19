package models

import (
	"time"

	"github.com/pop-scanner/internal/types"
)

// FunkoPop represents one trackable catalog item. The record is owned by the
// admin catalog surface; the scraper only reads identity fields and
// opportunistically writes the sticker columns when new evidence is found.
type FunkoPop struct {
	ID               string                  `json:"id" db:"id"`
	Name             string                  `json:"name" db:"name"`
	Series           string                  `json:"series" db:"series"`
	Number           *string                 `json:"number,omitempty" db:"number"`
	StickerType      *types.StickerType      `json:"stickerType,omitempty" db:"sticker_type"`
	IsStickered      bool                    `json:"isStickered" db:"is_stickered"`
	StickerCondition *types.StickerCondition `json:"stickerCondition,omitempty" db:"sticker_condition"`
	UpdatedAt        time.Time               `json:"updatedAt" db:"updated_at"`
}
