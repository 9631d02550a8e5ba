package query

import (
	"github.com/Konsultn-Engineering/typedsql/database"
)

type user struct {
	ID     int64
	Age    int
	Name   string
	Status string
}

type userSource struct{}

func (userSource) TableName() string { return "users" }

func (userSource) Scan(rows database.Rows) (user, error) {
	var u user
	err := rows.Scan(&u.ID, &u.Age, &u.Name, &u.Status)
	return u, err
}

var (
	users = userSource{}

	userID = NewNumberColumn[int64, user, int64]("id")
	age    = NewNumberColumn[int, user, int64]("age")
	score  = NewNumberColumn[float64, user, int64]("score")
	name   = NewTextColumn[user, int64]("name")
	status = NewTextColumn[user, int64]("status")
	active = NewColumn[bool, user, int64]("active")
)
