package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB holds the database connections. A nil field means that store is not configured.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	MongoDB  *mongo.Database
	Redis    *redis.Client
}

// InitDB connects every configured store. Production requires Postgres and MongoDB.
func InitDB(cfg *Config) (*DB, error) {
	if cfg.IsProduction() {
		if cfg.PostgresConnStr == "" {
			return nil, fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI environment variable not set")
		}
	}

	db := &DB{}
	if cfg.PostgresConnStr != "" {
		postgresDB, err := initPostgres(cfg.PostgresConnStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db.Postgres = postgresDB
	}

	if cfg.MongoURI != "" {
		mongoClient, err := initMongo(cfg.MongoURI)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = mongoClient
		db.MongoDB = mongoClient.Database(cfg.MongoDatabase)
	}

	if cfg.RedisURL != "" {
		redisClient, err := initRedis(cfg.RedisURL)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		db.Redis = redisClient
	}

	return db, nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	zap.S().Info("Successfully connected to PostgreSQL!")
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	zap.S().Info("Successfully connected to MongoDB!")
	return client, nil
}

// initRedis parses a redis:// URL and pings the server
func initRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	zap.S().Info("Successfully connected to Redis!")
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	log := zap.S()
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			log.Errorf("Error getting SQL DB from GORM: %v", err)
		} else {
			if err := sqlDB.Close(); err != nil {
				log.Errorf("Error closing PostgreSQL connection: %v", err)
			} else {
				log.Info("PostgreSQL connection closed.")
			}
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			log.Errorf("Error closing MongoDB connection: %v", err)
		} else {
			log.Info("MongoDB connection closed.")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			log.Errorf("Error closing Redis connection: %v", err)
		} else {
			log.Info("Redis connection closed.")
		}
	}
}
