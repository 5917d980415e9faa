package a

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrIncorrectPassword = errors.New("incorrect password")

const passwordField = "password"

type form struct {
	Username string
	Password string
}

func logs(log *zap.SugaredLogger, plain *zap.Logger, f form, password string) {
	log.Infow("signup", "username", f.Username)
	log.Infow("signup", "password", f.Password)        // want "Password must not be logged"
	log.Errorw("login failed", "value", password)      // want "password must not be logged"
	plain.Info("login", zap.String("pw", password))    // want "password must not be logged"
	log.Errorw("update failed", zap.Error(ErrIncorrectPassword))
	log.Infow("field name", "key", passwordField)

	fmt.Println(password)
}
