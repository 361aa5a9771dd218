package service

import (
	"encoding/json"
	"fmt"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"gorm.io/datatypes"
)

const subjectDriver = "driver"

// Actor is whoever performed a workflow operation. A nil ID means the system.
type Actor struct {
	ID   *uint  `json:"id,omitempty"`
	Name string `json:"name"`
}

func SystemActor() Actor {
	return Actor{Name: "system"}
}

func AdminActor(id uint, name string) Actor {
	return Actor{ID: &id, Name: name}
}

// RequestContext carries caller metadata recorded with attempts and activity logs.
type RequestContext struct {
	IP        string
	UserAgent string
	Timezone  string
}

func newActivity(action string, driverID uint, actor Actor, rc RequestContext, description string, props map[string]interface{}) (*model.ActivityLog, error) {
	properties, err := toJSON(props)
	if err != nil {
		return nil, fmt.Errorf("encode activity properties: %w", err)
	}
	return &model.ActivityLog{
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		Action:      action,
		SubjectType: subjectDriver,
		SubjectID:   driverID,
		Description: description,
		Properties:  properties,
		IPAddress:   rc.IP,
		UserAgent:   rc.UserAgent,
	}, nil
}

// toJSON encodes a snapshot column; nil yields NULL. NaN and ±Inf do not encode.
func toJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
