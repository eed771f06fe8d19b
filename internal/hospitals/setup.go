package hospitals

import (
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/sirupsen/logrus"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "directory"); err != nil {
		logrus.Fatal("Failed to ensure schema directory: ", err)
	}

	if err := db.DB.AutoMigrate(&Hospital{}); err != nil {
		logrus.Fatal("Failed to auto-migrate hospitals table: ", err)
	}
}
