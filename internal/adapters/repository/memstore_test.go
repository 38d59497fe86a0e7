package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Fai/poc-fitness-assistant-ai/internal/adapters/repository"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
)

func row(userID uuid.UUID, modality model.Modality, value float64, at time.Time) model.Measurement {
	return model.Measurement{
		ID:         uuid.New(),
		UserID:     userID,
		Modality:   modality,
		RecordedAt: at,
		Value:      value,
		Unit:       "kg",
	}
}

func TestMemStoreAppend(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		userID := uuid.New()
		base := time.Date(2026, 8, 10, 8, 0, 0, 0, time.UTC)

		Convey("When appending a measurement", func() {
			m := row(userID, model.ModalityWeight, 82, base)
			So(store.Append(ctx, m), ShouldBeNil)

			Convey("Then it is retrievable by id", func() {
				got, err := store.ByID(ctx, userID, m.ID)
				So(err, ShouldBeNil)
				So(got.Value, ShouldEqual, 82)
			})

			Convey("Then reusing the id fails with ErrDuplicateID", func() {
				dup := m
				dup.Value = 83
				err := store.Append(ctx, dup)
				So(errors.Is(err, repository.ErrDuplicateID), ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When appending out of timestamp order", func() {
			So(store.Append(ctx, row(userID, model.ModalityWeight, 3, base.Add(2*time.Hour))), ShouldBeNil)
			So(store.Append(ctx, row(userID, model.ModalityWeight, 1, base)), ShouldBeNil)
			So(store.Append(ctx, row(userID, model.ModalityWeight, 2, base.Add(time.Hour))), ShouldBeNil)

			Convey("Then range queries come back ascending by RecordedAt", func() {
				rows, err := store.QueryRange(ctx, userID, model.ModalityWeight, base, base.Add(3*time.Hour))
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 3)
				So(rows[0].Value, ShouldEqual, 1)
				So(rows[1].Value, ShouldEqual, 2)
				So(rows[2].Value, ShouldEqual, 3)
			})
		})
	})
}

func TestMemStoreQueryRange(t *testing.T) {
	Convey("Given a store with mixed-modality rows", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		userID := uuid.New()
		base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

		So(store.Append(ctx, row(userID, model.ModalityWeight, 82, base.Add(1*time.Hour))), ShouldBeNil)
		So(store.Append(ctx, row(userID, model.ModalityHeartRate, 58, base.Add(2*time.Hour))), ShouldBeNil)
		So(store.Append(ctx, row(userID, model.ModalityWeight, 81, base.Add(25*time.Hour))), ShouldBeNil)

		Convey("Then the window is half-open: from inclusive, to exclusive", func() {
			rows, err := store.QueryRange(ctx, userID, model.ModalityWeight, base.Add(1*time.Hour), base.Add(25*time.Hour))
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Value, ShouldEqual, 82)
		})

		Convey("Then other modalities are filtered out", func() {
			rows, err := store.QueryRange(ctx, userID, model.ModalityHeartRate, base, base.AddDate(0, 0, 2))
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Value, ShouldEqual, 58)
		})

		Convey("Then an unknown user yields an empty result", func() {
			rows, err := store.QueryRange(ctx, uuid.New(), model.ModalityWeight, base, base.AddDate(0, 0, 2))
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})
	})
}

func TestMemStoreMutations(t *testing.T) {
	Convey("Given a store with one row", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(repository.WithShardCount(4))
		userID := uuid.New()
		m := row(userID, model.ModalityHeartRate, 95, time.Now())
		So(store.Append(ctx, m), ShouldBeNil)

		Convey("When marking it anomalous", func() {
			So(store.MarkAnomaly(ctx, userID, m.ID, true), ShouldBeNil)

			got, err := store.ByID(ctx, userID, m.ID)
			So(err, ShouldBeNil)
			So(got.IsAnomaly, ShouldBeTrue)
		})

		Convey("When marking a missing row", func() {
			err := store.MarkAnomaly(ctx, userID, uuid.New(), true)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When deleting it", func() {
			So(store.Delete(ctx, userID, m.ID), ShouldBeNil)
			So(store.Count(ctx), ShouldEqual, 0)

			Convey("Then the id becomes reusable", func() {
				So(store.Append(ctx, m), ShouldBeNil)
			})

			Convey("Then a second delete fails", func() {
				err := store.Delete(ctx, userID, m.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestMemStoreDeleteUser(t *testing.T) {
	Convey("Given rows for two users", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		alice, bob := uuid.New(), uuid.New()
		now := time.Now()

		for i := 0; i < 5; i++ {
			So(store.Append(ctx, row(alice, model.ModalityWeight, 80, now.Add(time.Duration(i)*time.Hour))), ShouldBeNil)
		}
		So(store.Append(ctx, row(bob, model.ModalityWeight, 70, now)), ShouldBeNil)

		Convey("When deleting one user", func() {
			So(store.DeleteUser(ctx, alice), ShouldBeNil)

			Convey("Then only their rows disappear", func() {
				So(store.Count(ctx), ShouldEqual, 1)
				rows, err := store.QueryRange(ctx, bob, model.ModalityWeight, now.Add(-time.Hour), now.Add(time.Hour))
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
			})
		})
	})
}

func TestMemStoreConcurrentWrites(t *testing.T) {
	Convey("Given many users writing concurrently", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(repository.WithShardCount(8))
		const users = 16
		const perUser = 50

		var wg sync.WaitGroup
		ids := make([]uuid.UUID, users)
		for i := range ids {
			ids[i] = uuid.New()
		}

		base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
		for _, userID := range ids {
			wg.Add(1)
			go func(userID uuid.UUID) {
				defer wg.Done()
				for j := 0; j < perUser; j++ {
					_ = store.Append(ctx, row(userID, model.ModalityHeartRate, 60, base.Add(time.Duration(j)*time.Minute)))
				}
			}(userID)
		}
		wg.Wait()

		Convey("Then every row lands and per-user order holds", func() {
			So(store.Count(ctx), ShouldEqual, users*perUser)
			for _, userID := range ids {
				rows, err := store.QueryRange(ctx, userID, model.ModalityHeartRate, base, base.Add(time.Hour))
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, perUser)
				for i := 1; i < len(rows); i++ {
					So(rows[i].RecordedAt.Before(rows[i-1].RecordedAt), ShouldBeFalse)
				}
			}
		})
	})
}
