package api

import (
	"encoding/json"

	"pocketgrow/internal/core"
)

// Wire types mirror the remote JSON. Mapping to core types happens here,
// at the boundary, so nothing else in the codebase sees `_id` style keys.

type userWire struct {
	ID               string `json:"_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	TotalSavings     int64  `json:"totalSavings"`
	LastContribution string `json:"lastContribution"`
}

// contributionWire covers both shapes the API serves: the self-service
// route carries userId as a plain string, the admin route populates it
// with the full user document and adds userName.
type contributionWire struct {
	ID        string          `json:"_id"`
	UserID    json.RawMessage `json:"userId"`
	UserName  string          `json:"userName"`
	Amount    int64           `json:"amount"`
	Date      string          `json:"date"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

func (w userWire) toCore() core.UserSummary {
	last, _ := core.ParseDate(w.LastContribution) // absent or malformed means "never"
	return core.UserSummary{
		ID:               w.ID,
		Name:             w.Name,
		Email:            w.Email,
		Role:             core.Role(w.Role),
		TotalSavings:     w.TotalSavings,
		LastContribution: last,
	}
}

func (w contributionWire) toCore() (core.Contribution, error) {
	ownerID, ownerName := w.owner()

	date, err := core.ParseDate(w.Date)
	if err != nil {
		return core.Contribution{}, err
	}

	return core.Contribution{
		ID:        w.ID,
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Amount:    w.Amount,
		Date:      date,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}, nil
}

func (w contributionWire) owner() (id, name string) {
	name = w.UserName
	if len(w.UserID) == 0 {
		return "", name
	}

	var s string
	if err := json.Unmarshal(w.UserID, &s); err == nil {
		return s, name
	}

	var u userWire
	if err := json.Unmarshal(w.UserID, &u); err == nil {
		if name == "" {
			name = u.Name
		}
		return u.ID, name
	}
	return "", name
}

type fieldsWire struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
	Date   string `json:"date"`
}

func fieldsToWire(f core.Fields) fieldsWire {
	return fieldsWire{UserID: f.OwnerID, Amount: f.Amount, Date: f.Date}
}
