package database // MongoDB client

import (
	"context" // context carries deadlines and cancellation
	"time"    // time for timestamps and timeouts

	"go.mongodb.org/mongo-driver/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/mongo/options"  // options for finds and indexes
	"go.mongodb.org/mongo-driver/mongo/readpref" // readpref for the startup ping
)

// OpenMongo connects to MongoDB with the stable server API and pings the primary.
func OpenMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
