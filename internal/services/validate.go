package services

import (
	"github.com/go-playground/validator/v10"
)

// 服务层共享的请求校验器
var validate = validator.New()
