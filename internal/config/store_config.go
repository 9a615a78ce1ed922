package config

import "strings"

// Store backends
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
	StoreBackendSQL    = "sql"
)

const (
	storeBackendVar  = "store_backend"
	redisAddrVar     = "redis_addr"
	redisPasswordVar = "redis_password"
	redisDBVar       = "redis_db"
	sqlPathVar       = "sql_path"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetSQLPath() string
}

type Store struct {
	v viperReader
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return strings.ToLower(s.v.GetString(storeBackendVar))
}

func (s Store) GetRedisAddr() string     { return s.v.GetString(redisAddrVar) }
func (s Store) GetRedisPassword() string { return s.v.GetString(redisPasswordVar) }
func (s Store) GetRedisDB() int          { return s.v.GetInt(redisDBVar) }
func (s Store) GetSQLPath() string       { return s.v.GetString(sqlPathVar) }
