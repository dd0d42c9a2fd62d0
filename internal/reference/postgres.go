package reference

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ginjaninja78/ci-load-engine/internal/assembler"
	"github.com/ginjaninja78/ci-load-engine/internal/specialtariff"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Querier is the subset of database/sql the loaders use. *sql.DB and
// *sql.Tx both satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Open connects to Postgres through the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

const (
	manufacturersQuery = `SELECT mid, name, address1, address2, city, state, zip, country, active
		FROM manufacturers
		ORDER BY mid`

	addressesQuery = `SELECT customer_number, address_number, name, address1, address2, city, state, zip, country
		FROM customer_addresses
		ORDER BY customer_number, address_number`

	programsQuery = `SELECT country, hts_prefix, special_number, program_type, priority, auto_include, effective_from, effective_to
		FROM special_tariff_programs
		ORDER BY special_number, country`
)

// LoadPostgres reads the master data tables into a Snapshot.
func LoadPostgres(ctx context.Context, db Querier) (*Snapshot, error) {
	manufacturers, err := loadManufacturers(ctx, db)
	if err != nil {
		return nil, err
	}
	addresses, err := loadAddresses(ctx, db)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(manufacturers, addresses), nil
}

func loadManufacturers(ctx context.Context, db Querier) ([]assembler.Manufacturer, error) {
	rows, err := db.QueryContext(ctx, manufacturersQuery)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []assembler.Manufacturer
	for rows.Next() {
		var m assembler.Manufacturer
		var name, addr1, addr2, city, state, zip, country sql.NullString
		if err := rows.Scan(&m.MID, &name, &addr1, &addr2, &city, &state, &zip, &country, &m.Active); err != nil {
			return nil, fmt.Errorf("scan manufacturer: %w", err)
		}
		m.Name, m.Address1, m.Address2 = name.String, addr1.String, addr2.String
		m.City, m.State, m.Zip, m.Country = city.String, state.String, zip.String, country.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func loadAddresses(ctx context.Context, db Querier) ([]assembler.Address, error) {
	rows, err := db.QueryContext(ctx, addressesQuery)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []assembler.Address
	for rows.Next() {
		var a assembler.Address
		var name, addr1, addr2, city, state, zip, country sql.NullString
		if err := rows.Scan(&a.CustomerNumber, &a.AddressNumber, &name, &addr1, &addr2, &city, &state, &zip, &country); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		a.Name, a.Address1, a.Address2 = name.String, addr1.String, addr2.String
		a.City, a.State, a.Zip, a.Country = city.String, state.String, zip.String, country.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// LoadPrograms reads the special tariff cross-reference table.
func LoadPrograms(ctx context.Context, db Querier) ([]specialtariff.Program, error) {
	rows, err := db.QueryContext(ctx, programsQuery)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []specialtariff.Program
	for rows.Next() {
		var p specialtariff.Program
		var country, prefix, programType sql.NullString
		var priority sql.NullFloat64
		var from, to sql.NullTime
		if err := rows.Scan(&country, &prefix, &p.SpecialNumber, &programType, &priority, &p.AutoInclude, &from, &to); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		p.Country, p.HTSPrefix, p.ProgramType = country.String, prefix.String, programType.String
		if priority.Valid {
			v := priority.Float64
			p.Priority = &v
		}
		if from.Valid {
			t := from.Time
			p.EffectiveFrom = &t
		}
		if to.Valid {
			t := to.Time
			p.EffectiveTo = &t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
