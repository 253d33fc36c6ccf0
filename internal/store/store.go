package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

type Baseline struct {
	ID            string    `json:"id"`
	IssueKey      string    `json:"issueKey"`
	NodeID        string    `json:"nodeId"`
	NodeName      string    `json:"nodeName"`
	FileKey       string    `json:"fileKey"`
	PageName      string    `json:"pageName"`
	User          string    `json:"user"`
	CreatedAt     time.Time `json:"createdAt"`
	ImageKey      string    `json:"imageKey"`
	StructureJSON string    `json:"structureJson,omitempty"`
}

type Comparison struct {
	ID             string    `json:"id"`
	BaselineID     string    `json:"baselineId"`
	IssueKey       string    `json:"issueKey"`
	SlackChannel   string    `json:"slackChannel,omitempty"`
	NodeID         string    `json:"nodeId,omitempty"`
	NodeName       string    `json:"nodeName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	AfterImageKey  string    `json:"afterImageKey"`
	DiffImageKey   string    `json:"diffImageKey,omitempty"`
	ChangedPercent float64   `json:"changedPercent"`
	ChangedPixels  int64     `json:"changedPixels"`
	StructureJSON  string    `json:"structureJson,omitempty"`
	JiraCommentID  string    `json:"jiraCommentId,omitempty"`
	SlackTS        string    `json:"slackTs,omitempty"`
	ErrorLog       string    `json:"errorLog,omitempty"`
}

func (c *Comparison) IsDifferent() bool {
	return c.ChangedPixels > 0
}

// SlackThread remembers the root message of an issue's conversation.
type SlackThread struct {
	IssueKey    string
	Channel     string
	ThreadTS    string
	LastUpdated time.Time
}

type Store interface {
	CreateBaseline(ctx context.Context, b *Baseline) error
	GetBaseline(ctx context.Context, id string) (*Baseline, error)

	CreateComparison(ctx context.Context, c *Comparison) error
	GetComparison(ctx context.Context, id string) (*Comparison, error)
	ListComparisons(ctx context.Context, baselineID string) ([]*Comparison, error)
	UpdateNotifications(ctx context.Context, id string, jiraCommentID string, slackTS string, errorLog string) error

	GetSlackThread(ctx context.Context, issueKey string) (*SlackThread, error)
	// UpsertSlackThread stores thread unless the issue already has one and
	// returns whichever thread is stored afterwards.
	UpsertSlackThread(ctx context.Context, thread *SlackThread) (*SlackThread, error)

	Close() error
}
