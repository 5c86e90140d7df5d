package mongo

import (
	"ThinkSync/internal/model"
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messageCollection = "message"

// MessageRepo MongoDB 版本的私信存储，方法集与 MySQL 实现一致
type MessageRepo struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{col: db.Collection(messageCollection)}
}

// EnsureMessageIndexes 创建查询所需索引，可重复执行
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(messageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "is_read", Value: 1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "is_read", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
	})
	return errors.Wrap(err, "create message indexes")
}

func pairFilter(a, b uint64) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
}

func unreadFilter(receiverID, senderID uint64) bson.M {
	return bson.M{"receiver_id": receiverID, "sender_id": senderID, "is_read": false}
}

func (s *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	if err := msg.Stamp(); err != nil {
		return errors.Wrap(err, "stamp message")
	}
	if _, err := s.col.InsertOne(ctx, msg); err != nil {
		return errors.Wrap(err, "insert message")
	}
	return nil
}

func (s *MessageRepo) LastBetween(ctx context.Context, a, b uint64) (*model.Message, error) {
	var msg model.Message
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	err := s.col.FindOne(ctx, pairFilter(a, b), opts).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find last message")
	}
	return &msg, nil
}

func (s *MessageRepo) CountUnread(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	n, err := s.col.CountDocuments(ctx, unreadFilter(receiverID, senderID))
	return n, errors.Wrap(err, "count unread")
}

func (s *MessageRepo) CountUnreadTotal(ctx context.Context, receiverID uint64) (int64, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"receiver_id": receiverID, "is_read": false})
	return n, errors.Wrap(err, "count unread total")
}

func (s *MessageRepo) ListBetween(ctx context.Context, a, b uint64) ([]*model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.col.Find(ctx, pairFilter(a, b), opts)
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	msgs := make([]*model.Message, 0)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	return msgs, nil
}

func (s *MessageRepo) MarkRead(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	res, err := s.col.UpdateMany(ctx, unreadFilter(receiverID, senderID), bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, errors.Wrap(err, "mark messages read")
	}
	return res.ModifiedCount, nil
}

// ListCounterpartIDs 聚合出会话对方，按最近一条消息倒序
func (s *MessageRepo) ListCounterpartIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"receiver_id": userID},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", userID}},
				"$receiver_id",
				"$sender_id",
			}},
			"last_at": bson.M{"$first": "$created_at"},
			"last_id": bson.M{"$first": "$_id"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_at", Value: -1}, {Key: "last_id", Value: -1}}}},
	}

	cursor, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate counterparts")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var rows []struct {
		ID uint64 `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode counterparts")
	}
	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
