// Package seed populates an empty database with a small demo
// organisation so the service is usable out of the box in development.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
	"github.com/ge-entretec/debours/internal/domain/entity"
)

// Seeder inserts demo fixtures through the regular repositories
type Seeder struct {
	userRepo       port.UserRepository
	claimRepo      port.ClaimRepository
	historyRepo    port.HistoryRepository
	delegationRepo port.DelegationRepository
	logger         *zap.Logger
}

// NewSeeder creates a new Seeder
func NewSeeder(
	userRepo port.UserRepository,
	claimRepo port.ClaimRepository,
	historyRepo port.HistoryRepository,
	delegationRepo port.DelegationRepository,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		userRepo:       userRepo,
		claimRepo:      claimRepo,
		historyRepo:    historyRepo,
		delegationRepo: delegationRepo,
		logger:         logger,
	}
}

var (
	headquarters = entity.Location{
		Address:   "Rue de l'Entreprise 1, 1000 Lausanne",
		Latitude:  46.5197,
		Longitude: 6.6323,
	}
)

// Apply inserts the demo organisation. It is a no-op when the user
// table already has rows, so it is safe to run on every startup.
func (s *Seeder) Apply(ctx context.Context) error {
	existing, err := s.userRepo.List(ctx, true)
	if err != nil {
		return fmt.Errorf("check existing users: %w", err)
	}
	if len(existing) > 0 {
		s.logger.Debug("Seed skipped, database already populated",
			zap.Int("users", len(existing)))
		return nil
	}

	now := time.Now().UTC()

	for _, u := range demoUsers(now) {
		if err := s.userRepo.Create(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, d := range demoDelegations(now) {
		if err := s.delegationRepo.Create(ctx, d); err != nil {
			return fmt.Errorf("seed delegation %s: %w", d.ID, err)
		}
	}
	for _, c := range demoClaims(now) {
		if err := s.claimRepo.Create(ctx, c); err != nil {
			return fmt.Errorf("seed claim %s: %w", c.ID, err)
		}
		step := &entity.ValidationStep{
			ClaimID:   c.ID,
			Timestamp: c.CreatedAt,
			ActorID:   c.ClaimantID,
			Action:    entity.ActionSubmitted,
		}
		if err := s.historyRepo.Append(ctx, step); err != nil {
			return fmt.Errorf("seed claim history %s: %w", c.ID, err)
		}
		if c.Status.IsTerminal() {
			action := entity.ActionValidated
			if c.Status == entity.StatusRejected {
				action = entity.ActionRejected
			}
			step := &entity.ValidationStep{
				ClaimID:   c.ID,
				Timestamp: *c.DecidedAt,
				ActorID:   c.ApproverID,
				Action:    action,
				Comment:   c.Comment,
			}
			if err := s.historyRepo.Append(ctx, step); err != nil {
				return fmt.Errorf("seed claim history %s: %w", c.ID, err)
			}
		}
	}

	s.logger.Info("Demo data seeded")
	return nil
}

func demoUsers(now time.Time) []*entity.User {
	home := func(address string, lat, lng float64) *entity.Location {
		return &entity.Location{Address: address, Latitude: lat, Longitude: lng}
	}
	wp := headquarters

	users := []*entity.User{
		{
			ID: "u-director", LastName: "Dubois", FirstName: "Sophie",
			Email: "sophie.dubois@ge-entretec.ch", Role: entity.RoleDirector,
			HasFixedAllowance: true,
			Home:              home("Chemin de Bellevue 12, 1006 Lausanne", 46.5289, 6.6156),
		},
		{
			ID: "u-unit1", LastName: "Bernard", FirstName: "Pierre",
			Email: "pierre.bernard@ge-entretec.ch", Role: entity.RoleUnitManager,
			Unit: "Unité 1", HasFixedAllowance: true,
			Home: home("Route de Berne 45, 1010 Lausanne", 46.5584, 6.6389),
		},
		{
			ID: "u-unit2", LastName: "Leroy", FirstName: "Marc",
			Email: "marc.leroy@ge-entretec.ch", Role: entity.RoleUnitManager,
			Unit: "Unité 2", HasFixedAllowance: true,
			Home: home("Avenue de Rhodanie 8, 1007 Lausanne", 46.5123, 6.6445),
		},
		{
			ID: "u-entity-a", LastName: "Martin", FirstName: "Marie",
			Email: "marie.martin@ge-entretec.ch", Role: entity.RoleEntityManager,
			Entity: "Entité A", Unit: "Unité 1", HasFixedAllowance: true,
			Home: home("Avenue du Léman 25, 1005 Lausanne", 46.5156, 6.6498),
		},
		{
			ID: "u-entity-b", LastName: "Rousseau", FirstName: "Julie",
			Email: "julie.rousseau@ge-entretec.ch", Role: entity.RoleEntityManager,
			Entity: "Entité B", Unit: "Unité 1", HasFixedAllowance: true,
			Home: home("Chemin des Cèdres 18, 1004 Lausanne", 46.5267, 6.6181),
		},
		{
			ID: "u-collab-1", LastName: "Dupont", FirstName: "Jean",
			Email: "jean.dupont@ge-entretec.ch", Role: entity.RoleCollaborator,
			Entity: "Entité A", Unit: "Unité 1",
			Home: home("Chemin des Roses 15, 1004 Lausanne", 46.5271, 6.6190),
		},
		{
			ID: "u-collab-2", LastName: "Durand", FirstName: "Paul",
			Email: "paul.durand@ge-entretec.ch", Role: entity.RoleCollaborator,
			Entity: "Entité A", Unit: "Unité 1",
			Home: home("Chemin des Tulipes 16, 1005 Lausanne", 46.5258, 6.6172),
		},
		{
			ID: "u-collab-3", LastName: "Garcia", FirstName: "Carlos",
			Email: "carlos.garcia@ge-entretec.ch", Role: entity.RoleCollaborator,
			Entity: "Entité B", Unit: "Unité 1",
			Home: home("Avenue des Acacias 20, 1008 Lausanne", 46.5148, 6.6503),
		},
		{
			ID: "u-admin", LastName: "Favre", FirstName: "Nicolas",
			Email: "nicolas.favre@ge-entretec.ch", Role: entity.RoleAdmin,
			AdminGrantedBy: "u-director",
		},
	}

	for _, u := range users {
		u.Workplace = &wp
		u.CreatedAt = now
		u.UpdatedAt = now
		if u.Role == entity.RoleAdmin {
			since := now
			u.AdminSince = &since
		}
	}
	return users
}

func demoDelegations(now time.Time) []*entity.Delegation {
	day := 24 * time.Hour
	return []*entity.Delegation{
		{
			ID:          "seed-delegation-1",
			DelegatorID: "u-entity-a",
			DelegateID:  "u-entity-b",
			StartDate:   now.Add(-2 * day).Truncate(day),
			EndDate:     now.Add(12 * day).Truncate(day),
			Scope:       entity.ScopeEntityOnly,
			Motive:      "Congés annuels",
			Status:      entity.DelegationActive,
			CreatedAt:   now,
		},
	}
}

func demoClaims(now time.Time) []*entity.Claim {
	km := 42.0
	decided := now.Add(-36 * time.Hour)
	return []*entity.Claim{
		{
			ID:         "seed-claim-1",
			Date:       now.Add(-72 * time.Hour),
			ClaimantID: "u-collab-1",
			Type:       entity.ClaimTypeTravel,
			Subtype:    entity.SubtypeKilometric,
			Amount:     25.20,
			Kilometers: &km,
			Description: "Déplacement chez le client, chantier de Renens",
			Status:     entity.StatusValidated,
			Receipts:   []string{},
			ApproverID: "u-entity-a",
			DecidedAt:  &decided,
			DecidedVia: entity.ViaDirect,
			MissionLocation: &entity.Location{
				Address:   "Rue du Lac 31, 1020 Renens",
				Latitude:  46.5381,
				Longitude: 6.5989,
			},
			IsClientMission: true,
			CreatedAt:       now.Add(-72 * time.Hour),
			UpdatedAt:       decided,
		},
		{
			ID:          "seed-claim-2",
			Date:        now.Add(-24 * time.Hour),
			ClaimantID:  "u-collab-2",
			Type:        entity.ClaimTypeMeal,
			Subtype:     entity.SubtypeLunch,
			Amount:      18.50,
			Description: "Repas de midi en déplacement",
			Status:      entity.StatusPending,
			Receipts:    []string{},
			StartTime:   "08:00",
			EndTime:     "17:30",
			CreatedAt:   now.Add(-24 * time.Hour),
			UpdatedAt:   now.Add(-24 * time.Hour),
		},
		{
			ID:          "seed-claim-3",
			Date:        now.Add(-48 * time.Hour),
			ClaimantID:  "u-collab-3",
			Type:        entity.ClaimTypeSupplies,
			Amount:      64.90,
			Description: "Petit outillage de chantier",
			SupplyCode:  "CS-1042",
			SupplyReason: "Remplacement urgent, magasin fermé",
			Status:      entity.StatusPending,
			Receipts:    []string{},
			CreatedAt:   now.Add(-48 * time.Hour),
			UpdatedAt:   now.Add(-48 * time.Hour),
		},
	}
}
