package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

// SnapshotEntryModel is the persistence model for the snapshot cache:
// the latest observation per (channel, product).
type SnapshotEntryModel struct {
	Channel    string    `gorm:"size:32;primaryKey"`
	ProductKey string    `gorm:"size:128;primaryKey"`
	Quantity   int64     `gorm:"not null"`
	ObservedAt time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (SnapshotEntryModel) TableName() string {
	return "snapshot_entries"
}

// ToDomain converts the persistence model to a domain SnapshotEntry
func (m *SnapshotEntryModel) ToDomain() stock.SnapshotEntry {
	return stock.SnapshotEntry{
		Channel:    stock.ChannelCode(m.Channel),
		Key:        stock.ProductKey(m.ProductKey),
		Quantity:   m.Quantity,
		ObservedAt: m.ObservedAt,
	}
}

// SnapshotEntryModelFromObservation creates a persistence model from a
// domain observation
func SnapshotEntryModelFromObservation(obs stock.Observation) *SnapshotEntryModel {
	v, _ := obs.Quantity.Value()
	return &SnapshotEntryModel{
		Channel:    obs.Channel.String(),
		ProductKey: obs.Key.String(),
		Quantity:   v,
		ObservedAt: obs.ObservedAt,
	}
}

// SyncPassModel is the persistence model for the pass audit trail
type SyncPassModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	State      string    `gorm:"size:32;not null;index"`
	ReadOnly   bool      `gorm:"not null"`
	StartedAt  time.Time `gorm:"not null;index"`
	FinishedAt *time.Time

	ObservationCount int `gorm:"not null;default:0"`
	ProductCount     int `gorm:"not null;default:0"`
	DiscrepancyCount int `gorm:"not null;default:0"`
	ActionCount      int `gorm:"not null;default:0"`
	CorrectedCount   int `gorm:"not null;default:0"`
	RejectedCount    int `gorm:"not null;default:0"`
	ConflictCount    int `gorm:"not null;default:0"`
	AnomalyCount     int `gorm:"not null;default:0"`

	// Comma-joined channel codes
	SkippedAuth      string `gorm:"size:256"`
	SkippedTransient string `gorm:"size:256"`

	ErrorMessage string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncPassModel) TableName() string {
	return "sync_passes"
}

// ToDomain converts the persistence model to a domain SyncPass
func (m *SyncPassModel) ToDomain() *stock.SyncPass {
	return &stock.SyncPass{
		ID:               m.ID,
		State:            stock.PassState(m.State),
		ReadOnly:         m.ReadOnly,
		StartedAt:        m.StartedAt,
		FinishedAt:       m.FinishedAt,
		ObservationCount: m.ObservationCount,
		ProductCount:     m.ProductCount,
		DiscrepancyCount: m.DiscrepancyCount,
		ActionCount:      m.ActionCount,
		CorrectedCount:   m.CorrectedCount,
		RejectedCount:    m.RejectedCount,
		ConflictCount:    m.ConflictCount,
		AnomalyCount:     m.AnomalyCount,
		SkippedAuth:      splitChannels(m.SkippedAuth),
		SkippedTransient: splitChannels(m.SkippedTransient),
		ErrorMessage:     m.ErrorMessage,
	}
}

// FromDomain populates the persistence model from a domain SyncPass
func (m *SyncPassModel) FromDomain(p *stock.SyncPass) {
	m.ID = p.ID
	m.State = p.State.String()
	m.ReadOnly = p.ReadOnly
	m.StartedAt = p.StartedAt
	m.FinishedAt = p.FinishedAt
	m.ObservationCount = p.ObservationCount
	m.ProductCount = p.ProductCount
	m.DiscrepancyCount = p.DiscrepancyCount
	m.ActionCount = p.ActionCount
	m.CorrectedCount = p.CorrectedCount
	m.RejectedCount = p.RejectedCount
	m.ConflictCount = p.ConflictCount
	m.AnomalyCount = p.AnomalyCount
	m.SkippedAuth = joinChannels(p.SkippedAuth)
	m.SkippedTransient = joinChannels(p.SkippedTransient)
	m.ErrorMessage = p.ErrorMessage
}

// SyncPassModelFromDomain creates a persistence model from a domain SyncPass
func SyncPassModelFromDomain(p *stock.SyncPass) *SyncPassModel {
	m := &SyncPassModel{}
	m.FromDomain(p)
	return m
}

func joinChannels(codes []stock.ChannelCode) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

func splitChannels(s string) []stock.ChannelCode {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	codes := make([]stock.ChannelCode, len(parts))
	for i, p := range parts {
		codes[i] = stock.ChannelCode(p)
	}
	return codes
}

// PushLogModel is the persistence model for one attempted corrective write
type PushLogModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	PassID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Channel          string    `gorm:"size:32;not null"`
	ProductKey       string    `gorm:"size:128;not null;index"`
	PreviousQuantity *int64
	PushedQuantity   int64     `gorm:"not null"`
	Outcome          string    `gorm:"size:16;not null"`
	RemoteMessage    string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PushLogModel) TableName() string {
	return "sync_push_logs"
}

// ToDomain converts the persistence model to a domain PushLog
func (m *PushLogModel) ToDomain() *stock.PushLog {
	return &stock.PushLog{
		ID:               m.ID,
		PassID:           m.PassID,
		Channel:          stock.ChannelCode(m.Channel),
		Key:              stock.ProductKey(m.ProductKey),
		PreviousQuantity: m.PreviousQuantity,
		PushedQuantity:   m.PushedQuantity,
		Outcome:          stock.PushOutcome(m.Outcome),
		RemoteMessage:    m.RemoteMessage,
		CreatedAt:        m.CreatedAt,
	}
}

// PushLogModelFromDomain creates a persistence model from a domain PushLog
func PushLogModelFromDomain(l *stock.PushLog) *PushLogModel {
	return &PushLogModel{
		ID:               l.ID,
		PassID:           l.PassID,
		Channel:          l.Channel.String(),
		ProductKey:       l.Key.String(),
		PreviousQuantity: l.PreviousQuantity,
		PushedQuantity:   l.PushedQuantity,
		Outcome:          string(l.Outcome),
		RemoteMessage:    l.RemoteMessage,
		CreatedAt:        l.CreatedAt,
	}
}

// CredentialModel is the persistence model for per-channel API credentials
type CredentialModel struct {
	Channel      string `gorm:"size:32;primaryKey"`
	AccessToken  string `gorm:"type:text"`
	RefreshToken string `gorm:"type:text"`
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "channel_credentials"
}

// ToDomain converts the persistence model to a domain Credential
func (m *CredentialModel) ToDomain() *channel.Credential {
	return &channel.Credential{
		Channel:      stock.ChannelCode(m.Channel),
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		ExpiresAt:    m.ExpiresAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// CredentialModelFromDomain creates a persistence model from a domain
// Credential
func CredentialModelFromDomain(c *channel.Credential) *CredentialModel {
	return &CredentialModel{
		Channel:      c.Channel.String(),
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    c.ExpiresAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ChannelQuirkModel is the persistence model for misbehaving
// (channel, product) pairs
type ChannelQuirkModel struct {
	Channel    string    `gorm:"size:32;primaryKey"`
	ProductKey string    `gorm:"size:128;primaryKey"`
	Reason     string    `gorm:"type:text"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChannelQuirkModel) TableName() string {
	return "channel_quirks"
}

// ToDomain converts the persistence model to a domain ChannelQuirk
func (m *ChannelQuirkModel) ToDomain() stock.ChannelQuirk {
	return stock.ChannelQuirk{
		Channel:   stock.ChannelCode(m.Channel),
		Key:       stock.ProductKey(m.ProductKey),
		Reason:    m.Reason,
		UpdatedAt: m.UpdatedAt,
	}
}
