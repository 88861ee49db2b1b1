package docstore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func oid(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return id
}

func date(y int, m time.Month, d int) primitive.DateTime {
	return primitive.NewDateTimeFromTime(time.Date(y, m, d, 9, 30, 0, 0, time.UTC))
}

var (
	userAda   = oid("65a1f0c2e4b0a1b2c3d4e001")
	userGrace = oid("65a1f0c2e4b0a1b2c3d4e002")
	userAlan  = oid("65a1f0c2e4b0a1b2c3d4e003")

	productLamp  = oid("65a1f0c2e4b0a1b2c3d4f001")
	productDesk  = oid("65a1f0c2e4b0a1b2c3d4f002")
	productChair = oid("65a1f0c2e4b0a1b2c3d4f003")
)

// collectionOrder lists the canned collections in display order.
var collectionOrder = []string{"users", "orders", "products"}

// cannedCollections returns fresh copies of the canned documents.
func cannedCollections() map[string][]bson.D {
	return map[string][]bson.D{
		"users": {
			{
				{Key: "_id", Value: userAda},
				{Key: "name", Value: "Ada Lovelace"},
				{Key: "email", Value: "ada@example.com"},
				{Key: "address", Value: bson.D{{Key: "city", Value: "London"}, {Key: "country", Value: "UK"}}},
				{Key: "created_at", Value: date(2024, time.January, 3)},
			},
			{
				{Key: "_id", Value: userGrace},
				{Key: "name", Value: "Grace Hopper"},
				{Key: "email", Value: "grace@example.com"},
				{Key: "address", Value: bson.D{{Key: "city", Value: "Arlington"}, {Key: "country", Value: "US"}}},
				{Key: "created_at", Value: date(2024, time.February, 11)},
			},
			{
				{Key: "_id", Value: userAlan},
				{Key: "name", Value: "Alan Turing"},
				{Key: "email", Value: "alan@example.com"},
				{Key: "address", Value: bson.D{{Key: "city", Value: "Manchester"}, {Key: "country", Value: "UK"}}},
				{Key: "created_at", Value: date(2024, time.March, 27)},
			},
		},
		"orders": {
			{
				{Key: "_id", Value: oid("65a1f0c2e4b0a1b2c3d4a001")},
				{Key: "user_id", Value: userAda},
				{Key: "product_id", Value: productLamp},
				{Key: "quantity", Value: int32(2)},
				{Key: "total", Value: 79.8},
				{Key: "status", Value: "paid"},
				{Key: "shipping", Value: bson.D{{Key: "carrier", Value: "DHL"}, {Key: "eta_days", Value: int32(3)}}},
			},
			{
				{Key: "_id", Value: oid("65a1f0c2e4b0a1b2c3d4a002")},
				{Key: "user_id", Value: userGrace},
				{Key: "product_id", Value: productDesk},
				{Key: "quantity", Value: int32(1)},
				{Key: "total", Value: 349.0},
				{Key: "status", Value: "shipped"},
				{Key: "shipping", Value: bson.D{{Key: "carrier", Value: "UPS"}, {Key: "eta_days", Value: int32(1)}}},
			},
			{
				{Key: "_id", Value: oid("65a1f0c2e4b0a1b2c3d4a003")},
				{Key: "user_id", Value: userAda},
				{Key: "product_id", Value: productChair},
				{Key: "quantity", Value: int32(4)},
				{Key: "total", Value: 516.0},
				{Key: "status", Value: "pending"},
			},
		},
		"products": {
			{
				{Key: "_id", Value: productLamp},
				{Key: "name", Value: "Desk lamp"},
				{Key: "price", Value: 39.9},
				{Key: "tags", Value: bson.A{"lighting", "office"}},
				{Key: "stock", Value: int32(120)},
			},
			{
				{Key: "_id", Value: productDesk},
				{Key: "name", Value: "Standing desk"},
				{Key: "price", Value: 349.0},
				{Key: "tags", Value: bson.A{"furniture", "office"}},
				{Key: "stock", Value: int32(14)},
			},
			{
				{Key: "_id", Value: productChair},
				{Key: "name", Value: "Task chair"},
				{Key: "price", Value: 129.0},
				{Key: "tags", Value: bson.A{"furniture"}},
				{Key: "stock", Value: int32(0)},
			},
		},
	}
}
