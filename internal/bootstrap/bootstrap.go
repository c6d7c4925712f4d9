// Package bootstrap prepares a store at process start: schema, the default
// administrator and the sample inventory. Every step is idempotent.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/ossms/internal/db"
	"github.com/erazemk/ossms/internal/errs"
	"github.com/erazemk/ossms/internal/identity"
	"github.com/erazemk/ossms/internal/ledger"
	"github.com/erazemk/ossms/internal/model"
	"github.com/erazemk/ossms/internal/store"
)

// Default administrator account.
const (
	AdminUsername        = "admin"
	AdminEmail           = "admin@ossms.com"
	DefaultAdminPassword = "password"
)

// SeededSetting records when sample data was applied.
const SeededSetting = "sample_data_seeded_at"

// Options controls Run.
type Options struct {
	AdminPassword  string
	SeedSampleData bool
	BcryptCost     int
	// Fixture overrides the embedded sample data set.
	Fixture *Fixture
	Now     func() time.Time
}

// Result reports what Run changed.
type Result struct {
	AdminCreated bool
	Seeded       bool
}

// Run migrates the schema, provisions the administrator and seeds sample data
// when enabled. Each step commits on its own; a failed seed leaves nothing
// behind and is retried on the next run.
func Run(ctx context.Context, st *store.Store, opts Options) (*Result, error) {
	if opts.AdminPassword == "" {
		opts.AdminPassword = DefaultAdminPassword
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	if err := Migrate(ctx, st); err != nil {
		return nil, err
	}

	res := &Result{}
	created, err := EnsureAdmin(ctx, st, opts.AdminPassword, opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	res.AdminCreated = created

	if !opts.SeedSampleData {
		return res, nil
	}

	f := opts.Fixture
	if f == nil {
		if f, err = SampleFixture(); err != nil {
			return nil, err
		}
	}
	seeded, err := Seed(ctx, st, f, opts.BcryptCost, opts.Now())
	if err != nil {
		return nil, err
	}
	res.Seeded = seeded
	return res, nil
}

// Migrate creates missing tables and columns.
func Migrate(ctx context.Context, st *store.Store) error {
	err := st.Update(ctx, func(q store.Querier) error {
		return db.Migrate(ctx, q)
	})
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// EnsureAdmin creates the administrator account if it does not exist.
func EnsureAdmin(ctx context.Context, st *store.Store, password string, cost int) (bool, error) {
	var exists bool
	err := st.View(ctx, func(q store.Querier) error {
		u, err := store.GetUserByUsername(ctx, q, AdminUsername)
		exists = u != nil
		return err
	})
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	hash, err := identity.HashPassword(password, cost)
	if err != nil {
		return false, err
	}

	created := false
	err = st.Update(ctx, func(q store.Querier) error {
		// Re-check under the lock.
		u, err := store.GetUserByUsername(ctx, q, AdminUsername)
		if err != nil || u != nil {
			return err
		}
		created = true
		return store.CreateUser(ctx, q, &model.User{
			Username:     AdminUsername,
			PasswordHash: hash,
			Firstname:    "Admin",
			Lastname:     "User",
			Email:        AdminEmail,
			Role:         model.RoleAdmin,
			Permissions:  model.DefaultPermissions(model.RoleAdmin),
		})
	})
	if err != nil {
		return false, err
	}

	if created {
		slog.Info("administrator account created", "username", AdminUsername)
		if password == DefaultAdminPassword {
			slog.Warn("administrator is using the default password, change it after first login", "username", AdminUsername)
		}
	}
	return created, nil
}

// Seed applies f unless it was applied before or one of its marker supplies
// already exists. Opening stock and movements go through the ledger with
// backdated timestamps so the history replays to the stored quantities.
func Seed(ctx context.Context, st *store.Store, f *Fixture, cost int, now time.Time) (bool, error) {
	var done bool
	err := st.View(ctx, func(q store.Querier) error {
		var err error
		done, err = alreadySeeded(ctx, q, f)
		return err
	})
	if err != nil {
		return false, err
	}
	if done {
		slog.Info("sample data already present, skipping seed")
		return false, nil
	}

	hashes := make(map[string]string, len(f.Users))
	for _, fu := range f.Users {
		hash, err := identity.HashPassword(f.UserPassword, cost)
		if err != nil {
			return false, err
		}
		hashes[fu.Username] = hash
	}

	seeded := false
	err = st.Update(ctx, func(q store.Querier) error {
		done, err := alreadySeeded(ctx, q, f)
		if err != nil || done {
			return err
		}

		admin, err := store.GetUserByUsername(ctx, q, AdminUsername)
		if err != nil {
			return err
		}
		if admin == nil {
			return errs.NotFound("administrator account not found")
		}
		actors := map[string]string{AdminUsername: admin.ID}

		for _, fu := range f.Users {
			id, err := ensureUser(ctx, q, fu, hashes[fu.Username])
			if err != nil {
				return err
			}
			actors[fu.Username] = id
		}

		opening := now.AddDate(0, 0, -f.OpeningDaysAgo)
		ids := make(map[string]string, len(f.Supplies))
		for _, fs := range f.Supplies {
			s, err := fs.supply()
			if err != nil {
				return err
			}
			if _, err := ledger.CreateSupply(ctx, q, admin.ID, s, ledger.NoteInitialStock, opening); err != nil {
				return fmt.Errorf("seeding %q: %w", fs.Name, err)
			}
			ids[fs.Name] = s.ID
		}

		for _, m := range f.Movements {
			supplyID, ok := ids[m.Supply]
			if !ok {
				return errs.NotFound("sample movement references unknown supply %q", m.Supply)
			}
			actorID, ok := actors[m.User]
			if !ok {
				return errs.NotFound("sample movement references unknown user %q", m.User)
			}
			at := now.AddDate(0, 0, -m.DaysAgo)
			if _, _, err := ledger.AdjustStock(ctx, q, actorID, supplyID, m.Delta, m.Notes, at); err != nil {
				return fmt.Errorf("seeding movement for %q: %w", m.Supply, err)
			}
		}

		seeded = true
		return store.PutSetting(ctx, q, SeededSetting, now.Format(time.RFC3339))
	})
	if err != nil {
		return false, fmt.Errorf("seeding sample data: %w", err)
	}

	if seeded {
		slog.Info("sample data seeded",
			"users", len(f.Users),
			"supplies", len(f.Supplies),
			"movements", len(f.Movements),
		)
	}
	return seeded, nil
}

// alreadySeeded reports whether sample data was recorded as applied or any
// marker supply exists.
func alreadySeeded(ctx context.Context, q store.Querier, f *Fixture) (bool, error) {
	at, err := store.GetSetting(ctx, q, SeededSetting)
	if err != nil {
		return false, err
	}
	if at != "" {
		return true, nil
	}
	present, err := store.CountSuppliesByNames(ctx, q, f.Markers)
	if err != nil {
		return false, err
	}
	return present > 0, nil
}

// ensureUser returns the id of the sample user, creating it when absent.
func ensureUser(ctx context.Context, q store.Querier, fu FixtureUser, hash string) (string, error) {
	existing, err := store.GetUserByUsername(ctx, q, fu.Username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	u := &model.User{
		Username:     fu.Username,
		PasswordHash: hash,
		Firstname:    fu.Firstname,
		Lastname:     fu.Lastname,
		Email:        fu.Email,
		Role:         fu.Role,
		Permissions:  model.DefaultPermissions(fu.Role),
	}
	if err := store.CreateUser(ctx, q, u); err != nil {
		return "", err
	}
	return u.ID, nil
}
