package models

import "time"

// CropRecord is one normalized, validated row of farmer-submitted yield data.
// Records are immutable after creation; there is no update or delete path.
type CropRecord struct {
	BatchID           string         `json:"upload_batch_id" bson:"upload_batch_id"`
	FieldID           string         `json:"field_id" bson:"field_id"`
	FieldName         string         `json:"field_name" bson:"field_name"`
	State             string         `json:"state" bson:"state"`
	District          string         `json:"district" bson:"district"`
	CropType          string         `json:"crop_type" bson:"crop_type"`
	SoilType          string         `json:"soil_type,omitempty" bson:"soil_type,omitempty"`
	Season            string         `json:"season,omitempty" bson:"season,omitempty"`
	CultivationYear   int            `json:"cultivation_year,omitempty" bson:"cultivation_year,omitempty"`
	YieldPerHectare   float64        `json:"yield_per_hectare" bson:"yield_per_hectare"`
	FieldSizeHectares float64        `json:"field_size_hectares" bson:"field_size_hectares"`
	Latitude          *float64       `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude         *float64       `json:"longitude,omitempty" bson:"longitude,omitempty"`
	SoilPH            *float64       `json:"soil_ph,omitempty" bson:"soil_ph,omitempty"`
	DataSource        string         `json:"data_source" bson:"data_source"`
	UploadTimestamp   int64          `json:"upload_timestamp" bson:"upload_timestamp"`
	CreatedAt         time.Time      `json:"created_at" bson:"created_at"`
	Extra             map[string]any `json:"extra,omitempty" bson:"extra,omitempty"`
}
