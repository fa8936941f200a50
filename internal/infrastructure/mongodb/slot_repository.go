package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/transfer-service/internal/domain"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
	pkgmongo "github.com/wms-platform/transfer-service/pkg/mongodb"
)

const slotsCollection = "slots"

// SlotRepository stores one document per slot, keyed by slot id. Reservations are taken
// with a filtered update so concurrent service instances cannot double-book a slot.
type SlotRepository struct {
	collection *mongo.Collection
	observer   *pkgmongo.Observer
}

func NewSlotRepository(db *mongo.Database, m *metrics.Metrics, logger *logging.Logger) *SlotRepository {
	repo := &SlotRepository{
		collection: db.Collection(slotsCollection),
		observer:   pkgmongo.NewObserver(slotsCollection, m, logger),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *SlotRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "zone", Value: 1}, {Key: "row", Value: 1}, {Key: "col", Value: 1}}},
		{Keys: bson.D{{Key: "reservedBy.orderId", Value: 1}, {Key: "reservedBy.itemCode", Value: 1}}},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *SlotRepository) FindByID(ctx context.Context, id domain.SlotID) (*domain.Slot, error) {
	var slot *domain.Slot
	err := r.observer.Observe(ctx, "find_by_id", func(ctx context.Context) error {
		var doc domain.Slot
		err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		if err == mongo.ErrNoDocuments {
			return nil
		}
		if err != nil {
			return err
		}
		slot = &doc
		return nil
	})
	return slot, err
}

func (r *SlotRepository) FindByZone(ctx context.Context, zone string) ([]*domain.Slot, error) {
	var slots []*domain.Slot
	err := r.observer.Observe(ctx, "find_by_zone", func(ctx context.Context) error {
		opts := options.Find().SetSort(bson.D{{Key: "row", Value: 1}, {Key: "col", Value: 1}})
		cursor, err := r.collection.Find(ctx, bson.M{"zone": zone}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &slots)
	})
	return slots, err
}

// CompareAndReserve sets reservedBy only on a free slot, or confirms one already held by owner
func (r *SlotRepository) CompareAndReserve(ctx context.Context, id domain.SlotID, owner domain.TransferRef) (bool, error) {
	var newlyReserved bool
	err := r.observer.Observe(ctx, "compare_and_reserve", func(ctx context.Context) error {
		filter := bson.M{"_id": id, "occupied": false, "reservedBy": nil}
		update := bson.M{"$set": bson.M{"reservedBy": owner, "reservedAt": time.Now().UTC()}}

		res, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		if res.ModifiedCount == 1 {
			newlyReserved = true
			return nil
		}

		// Not free: either already ours, taken, occupied or missing.
		var current domain.Slot
		err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&current)
		if err == mongo.ErrNoDocuments {
			return domain.ErrUnknownSlot
		}
		if err != nil {
			return err
		}
		if current.IsHeldBy(owner) && !current.Occupied {
			return nil
		}
		return domain.ErrSlotConflict
	})
	return newlyReserved, err
}

func (r *SlotRepository) ReleaseIfOwner(ctx context.Context, id domain.SlotID, owner domain.TransferRef) (bool, error) {
	var released bool
	err := r.observer.Observe(ctx, "release_if_owner", func(ctx context.Context) error {
		filter := bson.M{
			"_id":                 id,
			"reservedBy.kind":     owner.Kind,
			"reservedBy.orderId":  owner.OrderID,
			"reservedBy.itemCode": owner.ItemCode,
		}
		update := bson.M{"$unset": bson.M{"reservedBy": "", "reservedAt": ""}}

		res, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		released = res.ModifiedCount == 1
		return nil
	})
	return released, err
}

// EnsureSlots inserts missing slots and refreshes occupancy of unreserved ones
func (r *SlotRepository) EnsureSlots(ctx context.Context, slots []*domain.Slot) error {
	return r.observer.Observe(ctx, "ensure_slots", func(ctx context.Context) error {
		models := make([]mongo.WriteModel, 0, 2*len(slots))
		for _, s := range slots {
			models = append(models,
				mongo.NewUpdateOneModel().
					SetFilter(bson.M{"_id": s.ID}).
					SetUpdate(bson.M{"$setOnInsert": bson.M{
						"zone":     s.Zone,
						"row":      s.Row,
						"col":      s.Col,
						"occupied": s.Occupied,
					}}).
					SetUpsert(true),
				mongo.NewUpdateOneModel().
					SetFilter(bson.M{"_id": s.ID, "reservedBy": nil}).
					SetUpdate(bson.M{"$set": bson.M{"occupied": s.Occupied}}),
			)
		}
		if len(models) == 0 {
			return nil
		}

		_, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
		if err != nil {
			return fmt.Errorf("failed to ensure slots: %w", err)
		}
		return nil
	})
}
