package dummydb

import (
	"sync"

	"github.com/trezcool/footpulse/core/survey"
	"github.com/trezcool/footpulse/core/user"
)

type (
	DB struct {
		user       *userTable
		template   *templateTable
		assignment *assignmentTable
		response   *responseTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	templateTable struct {
		sync.RWMutex
		table map[string]*survey.Template
	}

	assignmentTable struct {
		sync.RWMutex
		table map[string]*survey.Assignment
	}

	responseTable struct {
		sync.RWMutex
		table map[string]*survey.Response
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		template:   &templateTable{table: make(map[string]*survey.Template)},
		assignment: &assignmentTable{table: make(map[string]*survey.Assignment)},
		response:   &responseTable{table: make(map[string]*survey.Response)},
	}
	return db, nil
}
