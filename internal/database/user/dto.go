package user

import (
	"github.com/calagora/freebusy-backend/internal/model"
)

type userDTO struct {
	ID       int64
	FullName string
	Email    string
}

func mapToUser(dto *userDTO) *model.User {
	return &model.User{
		ID: dto.ID,
		UserCreate: model.UserCreate{
			FullName: dto.FullName,
			Email:    dto.Email,
		},
	}
}
