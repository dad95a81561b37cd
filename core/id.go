package core

import (
	"github.com/google/uuid"

	"pkt.systems/askd/schema"
)

func newCommandID() schema.CommandID {
	return schema.CommandID(uuid.NewString())
}
