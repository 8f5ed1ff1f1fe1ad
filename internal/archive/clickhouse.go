package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"fisbd/internal/acdu"
)

// ClickHouseConfig holds ClickHouse connection settings, mirroring the
// teacher's storage.ClickHouseConfig shape.
type ClickHouseConfig struct {
	Host, Database, User, Password string
	Port                           int
}

// ClickHouseSink is the raw-packet analytics store (spec §2 "a separate
// analytics store"), grounded directly on the teacher's ClickHouseDB.
type ClickHouseSink struct {
	conn driver.Conn
}

// OpenClickHouseSink connects and ensures the packets table exists.
func OpenClickHouseSink(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("archive: ping clickhouse: %w", err)
	}

	sink := &ClickHouseSink{conn: conn}
	if err := sink.createSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return sink, nil
}

func (s *ClickHouseSink) createSchema(ctx context.Context) error {
	return s.conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS raw_packets (
	rcvd_time   DateTime64(3),
	station     LowCardinality(String),
	lat         Float64,
	lon         Float64,
	mso         UInt32,
	timeslot    UInt8,
	site_id     UInt8,
	rssi        Float32,
	frame_count UInt16,
	packet_json String,
	inserted_at DateTime64(3) DEFAULT now64(3)
)
ENGINE = MergeTree()
PARTITION BY toYYYYMMDD(rcvd_time)
ORDER BY (station, rcvd_time)
SETTINGS index_granularity = 8192`)
}

// Insert archives one decoded packet as an analytics row.
func (s *ClickHouseSink) Insert(ctx context.Context, p *acdu.Packet) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("archive: marshal packet: %w", err)
	}
	return s.conn.Exec(ctx, `
INSERT INTO raw_packets (rcvd_time, station, lat, lon, mso, timeslot, site_id, rssi, frame_count, packet_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RcvdTime, p.Station, p.LatDeg, p.LonDeg, p.MSO, p.Timeslot, p.SiteID, p.RSSI, len(p.Frames), string(body))
}

// Close releases the ClickHouse connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
