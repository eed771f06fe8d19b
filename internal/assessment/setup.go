package assessment

import (
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/sirupsen/logrus"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "assessment"); err != nil {
		logrus.Fatal("Failed to ensure schema assessment: ", err)
	}

	if err := db.DB.AutoMigrate(&Submission{}, &RegionAggregate{}); err != nil {
		logrus.Fatal("Failed to auto-migrate assessment tables: ", err)
	}
}
