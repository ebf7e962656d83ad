package xmongo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// =============================================================================
// FindOne / FindMany / Count / Exists
// =============================================================================

func TestFindOne_Found(t *testing.T) {
	c, fc := newConnected(t)
	users := fc.collection("users")
	oid, _ := bson.ObjectIDFromHex(sampleHex)
	users.findOne = func(any) *mongo.SingleResult {
		return singleResult(bson.M{"_id": oid, "name": "Alice"})
	}

	doc, ok, err := c.FindOne(context.Background(), "users", Filter{"_id": sampleHex})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", doc["name"])
	assert.Equal(t, oid, doc["_id"])
	assert.Equal(t, bson.M{"_id": oid}, users.lastFilter())
}

func TestFindOne_NotFound(t *testing.T) {
	c, _ := newConnected(t)

	doc, ok, err := c.FindOne(context.Background(), "users", Filter{"name": "nobody"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, doc)
}

func TestFindOne_InvalidIdentifierSkipsServer(t *testing.T) {
	c, fc := newConnected(t)

	_, _, err := c.FindOne(context.Background(), "users", Filter{"_id": "not-a-real-id"})
	assert.Equal(t, KindInvalidIdentifier, KindOf(err))
	assert.Zero(t, fc.collection("users").callCount())
}

func TestFindOne_DriverError(t *testing.T) {
	c, fc := newConnected(t)
	cause := errors.New("socket closed")
	fc.collection("users").findOne = func(any) *mongo.SingleResult { return errorResult(cause) }

	_, _, err := c.FindOne(context.Background(), "users", nil)
	assert.Equal(t, KindOperationFailed, KindOf(err))
	assert.ErrorIs(t, err, cause)

	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "find_one", oe.Op)
	assert.Equal(t, "users", oe.Collection)
}

func TestFindOneAs(t *testing.T) {
	type user struct {
		ID   bson.ObjectID `bson:"_id"`
		Name string        `bson:"name"`
	}
	c, fc := newConnected(t)
	oid := bson.NewObjectID()
	fc.collection("users").findOne = func(any) *mongo.SingleResult {
		return singleResult(bson.M{"_id": oid, "name": "Alice"})
	}

	u, ok, err := FindOneAs[user](context.Background(), c, "users", Filter{"name": "Alice"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user{ID: oid, Name: "Alice"}, u)

	fc.collection("users").findOne = nil
	u, ok, err = FindOneAs[user](context.Background(), c, "users", Filter{"name": "Bob"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, u)
}

func TestFindMany(t *testing.T) {
	c, fc := newConnected(t)
	users := fc.collection("users")
	users.find = func(any) (*mongo.Cursor, error) {
		return cursorOf(t, bson.M{"name": "Alice"}, bson.M{"name": "Bob"}), nil
	}

	docs, err := c.FindMany(context.Background(), "users", Filter{"active": true}, QueryOptions{
		Limit: 10,
		Skip:  5,
		Sort:  bson.D{{Key: "name", Value: 1}},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Alice", docs[0]["name"])
	assert.Equal(t, "Bob", docs[1]["name"])

	fo := findOptionsOf(t, users.findOpts)
	require.NotNil(t, fo.Limit)
	require.NotNil(t, fo.Skip)
	assert.Equal(t, int64(10), *fo.Limit)
	assert.Equal(t, int64(5), *fo.Skip)
	assert.Equal(t, bson.D{{Key: "name", Value: 1}}, fo.Sort)
}

func TestFindMany_DefaultOptionsLeaveUnset(t *testing.T) {
	c, fc := newConnected(t)

	docs, err := c.FindMany(context.Background(), "users", nil, QueryOptions{})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	fo := findOptionsOf(t, fc.collection("users").findOpts)
	assert.Nil(t, fo.Limit)
	assert.Nil(t, fo.Skip)
	assert.Nil(t, fo.Sort)
	assert.Equal(t, bson.M{}, fc.collection("users").lastFilter())
}

func TestFindMany_RejectsNegative(t *testing.T) {
	c, fc := newConnected(t)

	_, err := c.FindMany(context.Background(), "users", nil, QueryOptions{Limit: -1})
	assert.Equal(t, KindValidation, KindOf(err))
	_, err = c.FindMany(context.Background(), "users", nil, QueryOptions{Skip: -1})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, fc.collection("users").callCount())
}

func TestFindMany_FindError(t *testing.T) {
	c, fc := newConnected(t)
	fc.collection("users").find = func(any) (*mongo.Cursor, error) { return nil, errors.New("boom") }

	_, err := c.FindMany(context.Background(), "users", nil, QueryOptions{})
	assert.ErrorIs(t, err, ErrOperationFailed)
}

func TestFindManyAs(t *testing.T) {
	type user struct {
		Name string `bson:"name"`
	}
	c, fc := newConnected(t)
	fc.collection("users").find = func(any) (*mongo.Cursor, error) {
		return cursorOf(t, bson.M{"name": "Carl"}), nil
	}

	got, err := FindManyAs[user](context.Background(), c, "users", nil, QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []user{{Name: "Carl"}}, got)

	fc.collection("users").find = nil
	got, err = FindManyAs[user](context.Background(), c, "users", nil, QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []user{}, got)
}

func TestCount(t *testing.T) {
	c, fc := newConnected(t)
	users := fc.collection("users")
	users.count = func(any) (int64, error) { return 3, nil }

	n, err := c.Count(context.Background(), "users", Filter{"age": bson.M{"$gt": 18}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	users.count = func(any) (int64, error) { return 0, errors.New("boom") }
	_, err = c.Count(context.Background(), "users", nil)
	assert.Equal(t, KindOperationFailed, KindOf(err))
}

func TestExists(t *testing.T) {
	c, fc := newConnected(t)
	users := fc.collection("users")

	ok, err := c.Exists(context.Background(), "users", Filter{"name": "Alice"})
	require.NoError(t, err)
	assert.False(t, ok)

	users.findOne = func(any) *mongo.SingleResult { return singleResult(bson.M{"_id": bson.NewObjectID()}) }
	ok, err = c.Exists(context.Background(), "users", Filter{"name": "Alice"})
	require.NoError(t, err)
	assert.True(t, ok)

	fo := findOneOptionsOf(t, users.findOneOpts)
	assert.Equal(t, bson.M{"_id": 1}, fo.Projection)

	users.findOne = func(any) *mongo.SingleResult { return errorResult(errors.New("boom")) }
	_, err = c.Exists(context.Background(), "users", nil)
	assert.ErrorIs(t, err, ErrOperationFailed)
}

// =============================================================================
// InsertOne
// =============================================================================

func TestInsertOne_GeneratesIdentifier(t *testing.T) {
	c, fc := newConnected(t)
	in := Document{"name": "Alice"}

	out, err := c.InsertOne(context.Background(), "users", in)
	require.NoError(t, err)

	id, ok := out["_id"].(bson.ObjectID)
	require.True(t, ok, "_id should be an ObjectID, got %T", out["_id"])
	assert.False(t, id.IsZero())
	assert.Equal(t, "Alice", out["name"])
	assert.NotContains(t, in, "_id", "input must not be mutated")
	assert.Equal(t, 1, fc.collection("users").callCount())
}

func TestInsertOne_NilIdentifierIsGenerated(t *testing.T) {
	c, _ := newConnected(t)

	out, err := c.InsertOne(context.Background(), "users", Document{"_id": nil, "name": "Alice"})
	require.NoError(t, err)
	assert.IsType(t, bson.ObjectID{}, out["_id"])
}

func TestInsertOne_ConvertsHexIdentifier(t *testing.T) {
	c, fc := newConnected(t)
	var sent any
	fc.collection("users").insertOne = func(doc any) (*mongo.InsertOneResult, error) {
		sent = doc
		return &mongo.InsertOneResult{Acknowledged: true}, nil
	}

	out, err := c.InsertOne(context.Background(), "users", Document{"_id": sampleHex, "name": "Alice"})
	require.NoError(t, err)

	oid, _ := bson.ObjectIDFromHex(sampleHex)
	assert.Equal(t, oid, out["_id"])
	assert.Equal(t, oid, sent.(Document)["_id"])
}

func TestInsertOne_Rejects(t *testing.T) {
	c, fc := newConnected(t)

	_, err := c.InsertOne(context.Background(), "users", nil)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = c.InsertOne(context.Background(), "users", Document{"_id": "xyz"})
	assert.Equal(t, KindInvalidIdentifier, KindOf(err))

	assert.Zero(t, fc.collection("users").callCount())
}

func TestInsertOne_DuplicateKey(t *testing.T) {
	c, fc := newConnected(t)
	cause := dupWriteException(11000,
		`E11000 duplicate key error collection: app.users index: name_1 dup key: { name: "Alice" }`, nil)
	fc.collection("users").insertOne = func(any) (*mongo.InsertOneResult, error) { return nil, cause }

	_, err := c.InsertOne(context.Background(), "users", Document{"name": "Alice"})
	require.Error(t, err)
	assert.Equal(t, KindDuplicateKey, KindOf(err))

	var de *DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "users", de.Collection)
	assert.Equal(t, "name", de.Field)
	assert.Equal(t, "Alice", de.Value)
}

func TestInsertOne_OtherFailures(t *testing.T) {
	c, fc := newConnected(t)
	users := fc.collection("users")

	cause := errors.New("network down")
	users.insertOne = func(any) (*mongo.InsertOneResult, error) { return nil, cause }
	_, err := c.InsertOne(context.Background(), "users", Document{"name": "Alice"})
	assert.Equal(t, KindOperationFailed, KindOf(err))
	assert.ErrorIs(t, err, cause)

	users.insertOne = func(any) (*mongo.InsertOneResult, error) {
		return &mongo.InsertOneResult{Acknowledged: false}, nil
	}
	_, err = c.InsertOne(context.Background(), "users", Document{"name": "Alice"})
	assert.ErrorIs(t, err, ErrUnacknowledged)
	assert.ErrorIs(t, err, ErrOperationFailed)
}

// =============================================================================
// UpdateOne
// =============================================================================

func TestUpdateOne(t *testing.T) {
	c, fc := newConnected(t)
	users := fc.collection("users")
	oid, _ := bson.ObjectIDFromHex(sampleHex)
	users.findOneAndUpdate = func(any, any) *mongo.SingleResult {
		return singleResult(bson.M{"_id": oid, "name": "Bob", "age": int32(30)})
	}

	out, err := c.UpdateOne(context.Background(), "users", Document{"_id": sampleHex, "name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", out["name"])
	assert.Equal(t, int32(30), out["age"])

	assert.Equal(t, bson.M{"_id": oid}, users.lastFilter())
	assert.Equal(t, bson.M{"$set": bson.M{"name": "Bob"}}, users.lastUpdate())

	uo := updateOptionsOf(t, users.updateOpts)
	require.NotNil(t, uo.ReturnDocument)
	assert.Equal(t, options.After, *uo.ReturnDocument)
}

func TestUpdateOne_OnlyIdentifierReadsCurrent(t *testing.T) {
	c, fc := newConnected(t)
	users := fc.collection("users")
	oid := bson.NewObjectID()
	users.findOne = func(any) *mongo.SingleResult { return singleResult(bson.M{"_id": oid, "name": "Alice"}) }

	out, err := c.UpdateOne(context.Background(), "users", Document{"_id": oid})
	require.NoError(t, err)
	assert.Equal(t, "Alice", out["name"])
	assert.Equal(t, []string{"FindOne"}, users.calls)
}

func TestUpdateOne_MissingIdentifier(t *testing.T) {
	c, fc := newConnected(t)

	for _, doc := range []Document{nil, {"name": "x"}, {"_id": nil}, {"_id": ""}} {
		_, err := c.UpdateOne(context.Background(), "users", doc)
		assert.Equal(t, KindValidation, KindOf(err), "doc %v", doc)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "_id", ve.Field)
	}
	assert.Zero(t, fc.collection("users").callCount())
}

func TestUpdateOne_InvalidIdentifier(t *testing.T) {
	c, _ := newConnected(t)

	_, err := c.UpdateOne(context.Background(), "users", Document{"_id": "not-a-real-id", "name": "x"})
	assert.Equal(t, KindInvalidIdentifier, KindOf(err))
}

func TestUpdateOne_NotFound(t *testing.T) {
	c, _ := newConnected(t)
	oid := bson.NewObjectID()

	_, err := c.UpdateOne(context.Background(), "users", Document{"_id": oid.Hex(), "name": "x"})
	assert.Equal(t, KindDocumentNotFound, KindOf(err))

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "users", nf.Collection)
	assert.Equal(t, oid, nf.ID)
}

func TestUpdateOne_DuplicateKey(t *testing.T) {
	c, fc := newConnected(t)
	fc.collection("users").findOneAndUpdate = func(any, any) *mongo.SingleResult {
		return errorResult(mongo.CommandError{
			Code:    11000,
			Message: `E11000 duplicate key error collection: app.users index: email_1 dup key: { email: "a@b.c" }`,
		})
	}

	_, err := c.UpdateOne(context.Background(), "users", Document{"_id": bson.NewObjectID(), "email": "a@b.c"})
	var de *DuplicateKeyError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "email", de.Field)
	assert.Equal(t, "a@b.c", de.Value)
}

// =============================================================================
// DeleteOne
// =============================================================================

func TestDeleteOne(t *testing.T) {
	c, fc := newConnected(t)
	users := fc.collection("users")
	oid, _ := bson.ObjectIDFromHex(sampleHex)

	require.NoError(t, c.DeleteOne(context.Background(), "users", Document{"_id": sampleHex}))
	assert.Equal(t, bson.M{"_id": oid}, users.lastFilter())
}

func TestDeleteOne_NotFound(t *testing.T) {
	c, fc := newConnected(t)
	fc.collection("users").deleteOne = func(any) (*mongo.DeleteResult, error) {
		return &mongo.DeleteResult{DeletedCount: 0, Acknowledged: true}, nil
	}

	err := c.DeleteOne(context.Background(), "users", Document{"_id": bson.NewObjectID()})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDeleteOne_Failures(t *testing.T) {
	c, fc := newConnected(t)

	err := c.DeleteOne(context.Background(), "users", Document{"name": "Alice"})
	assert.Equal(t, KindValidation, KindOf(err))

	err = c.DeleteOne(context.Background(), "users", Document{"_id": 42})
	assert.Equal(t, KindInvalidIdentifier, KindOf(err))

	cause := errors.New("boom")
	fc.collection("users").deleteOne = func(any) (*mongo.DeleteResult, error) { return nil, cause }
	err = c.DeleteOne(context.Background(), "users", Document{"_id": bson.NewObjectID()})
	assert.Equal(t, KindOperationFailed, KindOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestOperations_CountedInStats(t *testing.T) {
	c, fc := newConnected(t)
	fc.collection("users").count = func(any) (int64, error) { return 0, errors.New("boom") }

	_, _ = c.Count(context.Background(), "users", nil)
	_, _, _ = c.FindOne(context.Background(), "users", nil)

	st := c.Stats()
	assert.Equal(t, int64(2), st.Operations)
	assert.Equal(t, int64(1), st.OperationErrors)
}
