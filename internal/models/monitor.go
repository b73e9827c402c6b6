// Package models holds the monitor payload shared by every monitor source.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
)

var (
	ErrMonitorNotFound = errors.New("monitor not found")
	ErrMonitorExpired  = errors.New("monitor link expired")
)

// Usage is how many times the shareable link was used, and its cap if any.
type Usage struct {
	Count int  `json:"count"`
	Max   *int `json:"max"`
}

type RiskCount struct {
	RiskLevel string `json:"risk_level"`
	Count     int    `json:"count"`
}

type RecentResponse struct {
	ID        string   `json:"id"`
	CreatedAt string   `json:"created_at"`
	Score     *float64 `json:"score"`
	RiskLevel *string  `json:"risk_level"`
}

// DailyFactorStat is the mean answer for one factor over the responses of one day.
// Date is YYYY-MM-DD in the timezone the responses were stored in.
type DailyFactorStat struct {
	Date    string  `json:"date"`
	Factor  string  `json:"factor"`
	Scale   string  `json:"scale"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// MonitorPayload is the survey monitor document for one token.
type MonitorPayload struct {
	TotalResponses   int                    `json:"totalResponses"`
	TokenHash        string                 `json:"tokenHash"`
	Usage            Usage                  `json:"usage"`
	RiskDistribution []RiskCount            `json:"riskDistribution"`
	RecentResponses  []RecentResponse       `json:"recentResponses"`
	QuestionStats    []scoring.QuestionStat `json:"questionStats"`
	DailyFactorStats []DailyFactorStat      `json:"dailyFactorStats,omitempty"`

	Company   string `json:"company,omitempty"`
	Research  string `json:"research,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

// HashToken returns the hex SHA-256 of a monitor token. Tokens are stored and logged
// only in this form.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
