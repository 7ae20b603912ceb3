package main

import (
	"time"

	"github.com/google/uuid"
)

type sampleData struct {
	TheName     string    `db:"the_name,key"`
	TheSmallInt int16     `db:"the_small_int"`
	TheLargeInt int64     `db:"the_large_int"`
	GeneralInt  int32     `db:"general_int"`
	TheDate     time.Time `db:"the_date,type=date"`
	TheDateTime time.Time `db:"the_date_time"`
	TheUUID     uuid.UUID `db:"the_uuid"`
}

// sampleWithID is the demo table written by the CLI.
type sampleWithID struct {
	AutoID int32 `db:"auto_id,auto"`
	sampleData
}

const sampleTable = "sample_with_id"
