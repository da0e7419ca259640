// seed inserts a small roster, event set, and rotation pattern into the
// local dev database so `POST auto_schedule/run` has something to work
// with. Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cyberiseeyou/crossmark-scheduling-core/internal/infrastructure/postgres"
)

type employeeSpec struct {
	id, externalID, name, jobTitle string
}

var employees = []employeeSpec{
	{"US815021", "42", "Jamie Lead", "Lead Event Specialist"},
	{"US815022", "43", "Morgan Lead", "Lead Event Specialist"},
	{"US815023", "44", "Sam Juicer", "Juicer Barista"},
	{"US815024", "45", "Riley Supervisor", "Club Supervisor"},
	{"US815025", "", "Taylor Specialist", "Event Specialist"},
}

type eventSpec struct {
	refNum                        int
	externalID, locationMVID, name string
	startOffsetDays, dueOffsetDays int
}

var events = []eventSpec{
	{100001, "E1", "L1", "123456 Juicer Sampling", 3, 7},
	{100002, "E2", "L1", "234567 Core Product Demo", 3, 4},
	{100003, "E3", "L1", "234567 SUPV", 3, 7},
	{100004, "E4", "L1", "345678 Core Long Lead", 3, 17},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	for _, e := range employees {
		_, err := pool.Exec(ctx, `
			INSERT INTO employees (id, external_id, name, job_title, is_active)
			VALUES ($1, NULLIF($2, ''), $3, $4, true)
			ON CONFLICT (id) DO UPDATE SET external_id = EXCLUDED.external_id,
				name = EXCLUDED.name, job_title = EXCLUDED.job_title`,
			e.id, e.externalID, e.name, e.jobTitle)
		if err != nil {
			log.Fatalf("upsert employee %s: %v", e.id, err)
		}

		for weekday := 0; weekday < 7; weekday++ {
			_, err := pool.Exec(ctx, `
				INSERT INTO employee_weekly_availability (employee_id, weekday, available, window_start, window_end)
				VALUES ($1, $2, true, '08:00', '18:00')
				ON CONFLICT (employee_id, weekday) DO NOTHING`,
				e.id, weekday)
			if err != nil {
				log.Fatalf("seed availability %s: %v", e.id, err)
			}
		}
	}

	now := time.Now()
	for _, ev := range events {
		start := now.AddDate(0, 0, ev.startOffsetDays)
		due := now.AddDate(0, 0, ev.dueOffsetDays)
		_, err := pool.Exec(ctx, `
			INSERT INTO events (project_ref_num, external_id, location_mvid, project_name,
				event_type, start_datetime, due_datetime, estimated_minutes, is_scheduled, condition)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 60, false, 'Unstaffed')
			ON CONFLICT (project_ref_num) DO UPDATE SET
				external_id = EXCLUDED.external_id, location_mvid = EXCLUDED.location_mvid,
				start_datetime = EXCLUDED.start_datetime, due_datetime = EXCLUDED.due_datetime`,
			ev.refNum, ev.externalID, ev.locationMVID, ev.name, eventType(ev.name), start, due)
		if err != nil {
			log.Fatalf("upsert event %d: %v", ev.refNum, err)
		}
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO daily_rotations (weekday, rotation_type, employee_id)
		VALUES (0, 'primary_lead', 'US815021'), (0, 'primary_juicer', 'US815023')
		ON CONFLICT (weekday, rotation_type) DO UPDATE SET employee_id = EXCLUDED.employee_id`)
	if err != nil {
		log.Fatalf("seed rotation: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Printf("  Employees: %d\n", len(employees))
	fmt.Printf("  Events:    %d\n", len(events))
	fmt.Println()
	fmt.Println("Trigger a run:")
	fmt.Println("  curl -s -X POST http://localhost:8080/auto_schedule/run -H \"Authorization: Bearer $TOKEN\"")
}

// eventType is a rough classifier matching the name conventions the
// seed data uses; production events derive this from the upstream pull
// (internal/crossmark), not from string sniffing at seed time.
func eventType(name string) string {
	switch {
	case contains(name, "Juicer"):
		return "Juicer"
	case contains(name, "SUPV"):
		return "Supervisor"
	default:
		return "Core"
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
