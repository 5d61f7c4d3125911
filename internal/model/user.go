package model

type UserCreate struct {
	FullName string
	Email    string
}

type User struct {
	ID int64
	UserCreate
}

type UserSearchFilter struct {
	Query string
	Page  int
	Limit int
}
