// Package export writes the run results to a self-contained SQLite file so
// the aggregates can be queried after the fact. The file is a write-only
// artifact; mailsift never reads it back.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailsift/internal/domain"
)

const insertBatchSize = 200

// ClientRow is one aggregated source IP.
type ClientRow struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	IP             string `gorm:"size:45;uniqueIndex"`
	FirstSeen      int64
	LastSeen       int64
	Connects       int64
	ReconnectDelay *int64 // nil when the graylist delay never triggered
	DNSBLRanks     string // comma separated, in observed order
	CountryName    string `gorm:"size:56"`
	CountryCode    string `gorm:"size:2"`
	City           string `gorm:"size:64"`
	Latitude       float64
	Longitude      float64

	Actions []ClientActionRow `gorm:"foreignKey:ClientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (ClientRow) TableName() string { return "clients" }

// ClientActionRow is one per-client action counter.
type ClientActionRow struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	ClientID uint64 `gorm:"index"`
	Action   string `gorm:"size:64;index"`
	Count    int64
}

func (ClientActionRow) TableName() string { return "client_actions" }

// SummaryRow is one scalar of the aggregate summary.
type SummaryRow struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"size:64;uniqueIndex"`
	Value float64
}

func (SummaryRow) TableName() string { return "summary_entries" }

// WriteSQLite creates (or overwrites the tables of) the database at path and
// stores every client plus the summary scalars.
func WriteSQLite(path string, clients map[string]*domain.ClientState, s *domain.Summary) error {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("export: open sqlite database: %w", err)
	}
	defer closeDB(db)

	if err := db.AutoMigrate(&ClientRow{}, &ClientActionRow{}, &SummaryRow{}); err != nil {
		return fmt.Errorf("export: auto migrate: %w", err)
	}

	rows := buildClientRows(clients)
	if len(rows) > 0 {
		if err := db.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("export: insert clients: %w", err)
		}
	}

	summaryRows := buildSummaryRows(s)
	if err := db.CreateInBatches(summaryRows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("export: insert summary: %w", err)
	}

	log.Info("results exported", "path", path, "clients", len(rows))
	return nil
}

func buildClientRows(clients map[string]*domain.ClientState) []ClientRow {
	rows := make([]ClientRow, 0, len(clients))
	for ip, client := range clients {
		row := ClientRow{
			IP:         ip,
			FirstSeen:  client.FirstSeen(),
			LastSeen:   client.LastSeen(),
			Connects:   client.Connects(),
			DNSBLRanks: joinRanks(client.DNSBLRanks),
		}
		if delay, ok := client.ReconnectDelay(); ok {
			row.ReconnectDelay = &delay
		}
		if client.Geo != nil {
			row.CountryName = client.Geo.CountryName
			row.CountryCode = client.Geo.CountryCode
			row.City = client.Geo.City
			row.Latitude = client.Geo.Latitude
			row.Longitude = client.Geo.Longitude
		}
		for kind, count := range client.Actions {
			if count <= 0 {
				continue
			}
			row.Actions = append(row.Actions, ClientActionRow{
				Action: kind.Name(),
				Count:  count,
			})
		}
		rows = append(rows, row)
	}
	return rows
}

func buildSummaryRows(s *domain.Summary) []SummaryRow {
	rows := []SummaryRow{
		{Name: "clients", Value: float64(s.Clients)},
		{Name: "connect_clients", Value: float64(s.ConnectClients)},
		{Name: "total_connects", Value: float64(s.TotalConnects)},
		{Name: "reconnections", Value: float64(s.Reconnections)},
		{Name: "avg_reconnect_delay_seconds", Value: s.AvgReconnectDelay},
		{Name: "dnsbl_clients", Value: float64(s.DNSBLClients)},
		{Name: "avg_dnsbl_rank", Value: s.AvgDNSBLRank},
		{Name: "blocked_clients", Value: float64(s.BlockedClients)},
	}
	for i, label := range domain.ComebackLabels {
		rows = append(rows, SummaryRow{
			Name:  "comeback " + label,
			Value: float64(s.Comeback[i]),
		})
	}
	return rows
}

func joinRanks(ranks []int32) string {
	if len(ranks) == 0 {
		return ""
	}
	parts := make([]string, len(ranks))
	for i, rank := range ranks {
		parts[i] = strconv.FormatInt(int64(rank), 10)
	}
	return strings.Join(parts, ",")
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("error closing sqlite database", "error", err)
	}
}
