package internal

import (
	"context"
	"fmt"
	"log"
	"time"

	"evcp/entity"
	"evcp/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionLog             = "sys_log"
	collectionVariables       = "variable_attribute"
	collectionMonitors        = "variable_monitor"
	collectionTransactions    = "transactions"
	collectionLocalAuthList   = "local_auth_list"
	collectionAuthCache       = "auth_cache"
	collectionProfiles        = "charging_profiles"
	collectionDisplayMessages = "display_messages"
	collectionErrors          = "errors"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client, nil
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	err := connection.Disconnect(m.ctx)
	if err != nil {
		log.Println("mongodb disconnect error;", err)
	}
}

func (m *MongoDB) WriteLogMessage(data Data) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionLog)
	_, err = collection.InsertOne(m.ctx, data)
	return err
}

func (m *MongoDB) ReadLog() (interface{}, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var logMessages []FeatureLogMessage
	collection := connection.Database(m.database).Collection(collectionLog)
	filter := bson.D{}
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}}).SetLimit(1000)
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &logMessages); err != nil {
		return nil, err
	}
	return logMessages, nil
}

func (m *MongoDB) ReadVariables() ([]*entity.VariableEntry, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var entries []*entity.VariableEntry
	collection := connection.Database(m.database).Collection(collectionVariables)
	cursor, err := collection.Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveVariable upserts keyed by component+variable identity, so repeated
// boots never duplicate rows.
func (m *MongoDB) SaveVariable(entry *entity.VariableEntry) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionVariables)
	filter := bson.D{
		{Key: "component_name", Value: entry.ComponentName},
		{Key: "component_instance", Value: entry.ComponentInstance},
		{Key: "evse_id", Value: entry.EvseId},
		{Key: "connector_id", Value: entry.ConnectorId},
		{Key: "variable_name", Value: entry.VariableName},
		{Key: "variable_instance", Value: entry.VariableInstance},
	}
	update := bson.D{{Key: "$set", Value: entry}}
	_, err = collection.UpdateOne(m.ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoDB) ReadMonitors() ([]*entity.MonitorEntry, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var monitors []*entity.MonitorEntry
	collection := connection.Database(m.database).Collection(collectionMonitors)
	cursor, err := collection.Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &monitors); err != nil {
		return nil, err
	}
	return monitors, nil
}

func (m *MongoDB) SaveMonitor(monitor *entity.MonitorEntry) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionMonitors)
	filter := bson.D{{Key: "monitor_id", Value: monitor.Id}}
	update := bson.D{{Key: "$set", Value: monitor}}
	_, err = collection.UpdateOne(m.ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoDB) DeleteMonitor(id int) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionMonitors)
	_, err = collection.DeleteOne(m.ctx, bson.D{{Key: "monitor_id", Value: id}})
	return err
}

func (m *MongoDB) WriteTransaction(record *entity.TransactionRecord) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionTransactions)
	_, err = collection.InsertOne(m.ctx, record)
	return err
}

func (m *MongoDB) UpdateTransaction(record *entity.TransactionRecord) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionTransactions)
	filter := bson.D{{Key: "transaction_id", Value: record.TransactionId}}
	update := bson.D{{Key: "$set", Value: record}}
	_, err = collection.UpdateOne(m.ctx, filter, update)
	return err
}

func (m *MongoDB) GetOpenTransactions() ([]*entity.TransactionRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var records []*entity.TransactionRecord
	collection := connection.Database(m.database).Collection(collectionTransactions)
	filter := bson.D{{Key: "finished", Value: false}}
	cursor, err := collection.Find(m.ctx, filter)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MongoDB) ReadLocalList() (*entity.LocalList, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var list entity.LocalList
	collection := connection.Database(m.database).Collection(collectionLocalAuthList)
	err = collection.FindOne(m.ctx, bson.D{}).Decode(&list)
	if err == mongo.ErrNoDocuments {
		return &entity.LocalList{Version: 0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (m *MongoDB) SaveLocalList(list *entity.LocalList) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionLocalAuthList)
	update := bson.D{{Key: "$set", Value: list}}
	_, err = collection.UpdateOne(m.ctx, bson.D{}, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoDB) ReadAuthCache() ([]*entity.AuthCacheEntry, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var entries []*entity.AuthCacheEntry
	collection := connection.Database(m.database).Collection(collectionAuthCache)
	cursor, err := collection.Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *MongoDB) SaveCacheEntry(entry *entity.AuthCacheEntry) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionAuthCache)
	filter := bson.D{{Key: "id_token", Value: entry.IdToken}}
	update := bson.D{{Key: "$set", Value: entry}}
	_, err = collection.UpdateOne(m.ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoDB) DeleteCacheEntry(idToken string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionAuthCache)
	_, err = collection.DeleteOne(m.ctx, bson.D{{Key: "id_token", Value: idToken}})
	return err
}

func (m *MongoDB) ClearAuthCache() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionAuthCache)
	_, err = collection.DeleteMany(m.ctx, bson.D{})
	return err
}

func (m *MongoDB) ReadChargingProfiles() ([]*entity.ProfileRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var records []*entity.ProfileRecord
	collection := connection.Database(m.database).Collection(collectionProfiles)
	cursor, err := collection.Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MongoDB) SaveChargingProfile(record *entity.ProfileRecord) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionProfiles)
	filter := bson.D{{Key: "evse_id", Value: record.EvseId}, {Key: "profile.id", Value: record.Profile.Id}}
	update := bson.D{{Key: "$set", Value: record}}
	_, err = collection.UpdateOne(m.ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoDB) DeleteChargingProfile(evseId int, profileId int) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionProfiles)
	_, err = collection.DeleteOne(m.ctx, bson.D{{Key: "evse_id", Value: evseId}, {Key: "profile.id", Value: profileId}})
	return err
}

func (m *MongoDB) ReadDisplayMessages() ([]*entity.DisplayMessageRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var records []*entity.DisplayMessageRecord
	collection := connection.Database(m.database).Collection(collectionDisplayMessages)
	cursor, err := collection.Find(m.ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MongoDB) SaveDisplayMessage(record *entity.DisplayMessageRecord) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionDisplayMessages)
	filter := bson.D{{Key: "message_id", Value: record.Id}}
	update := bson.D{{Key: "$set", Value: record}}
	_, err = collection.UpdateOne(m.ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (m *MongoDB) DeleteDisplayMessage(id int) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionDisplayMessages)
	_, err = collection.DeleteOne(m.ctx, bson.D{{Key: "message_id", Value: id}})
	return err
}

func (m *MongoDB) WriteError(data *entity.ErrorData) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionErrors)
	_, err = collection.InsertOne(m.ctx, data)
	return err
}

func (m *MongoDB) GetTodayErrorCount() ([]*entity.ErrorCounter, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	collection := connection.Database(m.database).Collection(collectionErrors)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: dayStart}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "origin", Value: "$origin"}, {Key: "error_type", Value: "$type"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := collection.Aggregate(m.ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var counters []*entity.ErrorCounter
	if err = cursor.All(m.ctx, &counters); err != nil {
		return nil, err
	}
	return counters, nil
}
