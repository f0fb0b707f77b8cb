package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

func (dataEntity *UserDataEntity) ToDomain() User {
	return User{
		Id:        ObjectID(dataEntity.Id),
		Name:      dataEntity.Name,
		CreatedAt: dataEntity.CreatedAt,
	}
}

type UserDataEntity struct {
	Id        int64     `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (dataEntity *UserDataEntity) TableName() string {
	return "main.users"
}

type User struct {
	Id        ObjectID  `json:"_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ObjectID is the store-assigned identifier of a document. It travels as a
// decimal string so JavaScript clients do not lose precision.
type ObjectID int64

func ParseObjectID(s string) (ObjectID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid object id %q", s)
	}
	return ObjectID(v), nil
}

func (id ObjectID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ObjectID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("object id: %w", err)
		}
		*id = ObjectID(n)
		return nil
	}
	parsed, err := ParseObjectID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
