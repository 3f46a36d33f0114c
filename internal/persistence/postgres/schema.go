package postgres

import "context"

// schema creates the aggregate tables on startup. Every aggregate table is
// keyed by a unique calendar date; the outbox table backs event delivery.
const schema = `
CREATE TABLE IF NOT EXISTS sleep_records (
    id BIGSERIAL PRIMARY KEY,
    date DATE UNIQUE NOT NULL,
    time_in_bed_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
    time_asleep_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
    awake_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
    rem_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
    core_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
    deep_minutes DOUBLE PRECISION NOT NULL DEFAULT 0,
    bedtime TIMESTAMPTZ,
    wake_time TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS activity_records (
    id BIGSERIAL PRIMARY KEY,
    date DATE UNIQUE NOT NULL,
    steps INTEGER NOT NULL DEFAULT 0,
    move_calories DOUBLE PRECISION NOT NULL DEFAULT 0,
    stand_hours INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS vitals_records (
    id BIGSERIAL PRIMARY KEY,
    date DATE UNIQUE NOT NULL,
    resting_heart_rate DOUBLE PRECISION,
    sleeping_heart_rate DOUBLE PRECISION,
    respiratory_rate DOUBLE PRECISION,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS derived_metrics (
    id BIGSERIAL PRIMARY KEY,
    date DATE UNIQUE NOT NULL,
    sleep_consistency_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    sleep_fragmentation_index DOUBLE PRECISION NOT NULL DEFAULT 0,
    rem_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    deep_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
    sleep_efficiency DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS outbox (
    event_id BIGSERIAL PRIMARY KEY,
    event_type TEXT NOT NULL,
    topic TEXT NOT NULL,
    partition_key TEXT NOT NULL,
    payload JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    claimed_at TIMESTAMPTZ,
    published_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_unpublished_idx ON outbox (event_id) WHERE published_at IS NULL;
`

// EnsureSchema creates the tables if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}
