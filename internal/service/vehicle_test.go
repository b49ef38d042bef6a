package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/repo"
	"github.com/pkordes/carless/internal/service"
)

// mockVehicleRepo is a hand-written test double for repo.VehicleRepo.
type mockVehicleRepo struct {
	create  func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	getByID func(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	update  func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
}

func (m *mockVehicleRepo) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	return m.create(ctx, v)
}
func (m *mockVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	return m.getByID(ctx, id)
}
func (m *mockVehicleRepo) Update(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	return m.update(ctx, v)
}

var _ repo.VehicleRepo = (*mockVehicleRepo)(nil)

// vehicleFixture wires a gateway whose default vehicle is current and is
// referenced by used trips. Calls are recorded on the returned log.
type vehicleCalls struct {
	created, updated []domain.Vehicle
	defaults         []*domain.Vehicle
}

func vehicleFixture(current *domain.Vehicle, used int) (*mockGateway, *mockVehicleRepo, *vehicleCalls) {
	calls := &vehicleCalls{}
	gw := &mockGateway{
		defaultVehicle: func(context.Context) (*domain.Vehicle, error) { return current, nil },
		countTripsUsedByVehicle: func(_ context.Context, v *domain.Vehicle) (int, error) {
			if v == nil {
				return 0, nil
			}
			return used, nil
		},
		setDefaultVehicle: func(_ context.Context, v *domain.Vehicle) error {
			calls.defaults = append(calls.defaults, v)
			return nil
		},
	}
	vr := &mockVehicleRepo{
		create: func(_ context.Context, v domain.Vehicle) (domain.Vehicle, error) {
			v.ID = uuid.New()
			calls.created = append(calls.created, v)
			return v, nil
		},
		update: func(_ context.Context, v domain.Vehicle) (domain.Vehicle, error) {
			calls.updated = append(calls.updated, v)
			return v, nil
		},
	}
	return gw, vr, calls
}

func civicInput() service.VehicleInput {
	mpg := 33.0
	return service.VehicleInput{Year: 2020, Make: " Honda ", Model: "Civic", CombinedMPG: &mpg}
}

func TestVehicleService_SaveDefault_NoCurrentCreates(t *testing.T) {
	gw, vr, calls := vehicleFixture(nil, 0)

	got, err := service.NewVehicleService(gw, vr).SaveDefaultVehicle(context.Background(), civicInput())

	require.NoError(t, err)
	assert.Len(t, calls.created, 1)
	assert.Empty(t, calls.updated)
	assert.Equal(t, "Honda", got.Make, "input is trimmed")
	require.Len(t, calls.defaults, 1)
	assert.Equal(t, got.ID, calls.defaults[0].ID)
}

func TestVehicleService_SaveDefault_UnreferencedUpdatesInPlace(t *testing.T) {
	current := &domain.Vehicle{ID: uuid.New(), Year: 2010, Make: "Ford", Model: "Focus"}
	gw, vr, calls := vehicleFixture(current, 0)

	got, err := service.NewVehicleService(gw, vr).SaveDefaultVehicle(context.Background(), civicInput())

	require.NoError(t, err)
	assert.Empty(t, calls.created)
	require.Len(t, calls.updated, 1)
	assert.Equal(t, current.ID, got.ID)
	assert.Equal(t, "Civic", got.Model)
}

func TestVehicleService_SaveDefault_ReferencedCreatesCopy(t *testing.T) {
	current := &domain.Vehicle{ID: uuid.New(), Year: 2010, Make: "Ford", Model: "Focus"}
	gw, vr, calls := vehicleFixture(current, 3)

	got, err := service.NewVehicleService(gw, vr).SaveDefaultVehicle(context.Background(), civicInput())

	require.NoError(t, err)
	assert.Empty(t, calls.updated, "a vehicle used by trips is never edited")
	require.Len(t, calls.created, 1)
	assert.NotEqual(t, current.ID, got.ID)
	assert.Equal(t, got.ID, calls.defaults[0].ID)
}

func TestVehicleService_SaveDefault_Validation(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name string
		in   service.VehicleInput
	}{
		{"missing make", service.VehicleInput{Year: 2020, Model: "Civic"}},
		{"missing model", service.VehicleInput{Year: 2020, Make: "Honda", Model: "  "}},
		{"implausible year", service.VehicleInput{Year: 1850, Make: "Honda", Model: "Civic"}},
		{"zero mpg", service.VehicleInput{Year: 2020, Make: "Honda", Model: "Civic", CombinedMPG: &zero}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw, vr, calls := vehicleFixture(nil, 0)

			_, err := service.NewVehicleService(gw, vr).SaveDefaultVehicle(context.Background(), tc.in)

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, calls.created)
			assert.Empty(t, calls.defaults)
		})
	}
}

func TestVehicleService_ClearDefault(t *testing.T) {
	gw, vr, calls := vehicleFixture(nil, 0)

	require.NoError(t, service.NewVehicleService(gw, vr).ClearDefaultVehicle(context.Background()))

	require.Len(t, calls.defaults, 1)
	assert.Nil(t, calls.defaults[0])
}
