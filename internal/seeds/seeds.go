package seeds

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/mindbloom/mindbloom-backend/internal/auth"
	"github.com/mindbloom/mindbloom-backend/internal/db"
	"github.com/mindbloom/mindbloom-backend/internal/doctors"
	"github.com/mindbloom/mindbloom-backend/internal/hospitals"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultDirectoryFile = "internal/seeds/data/directory.yaml"

type DoctorSeed struct {
	Name       string  `yaml:"name"`
	Specialist string  `yaml:"specialist"`
	Fees       float64 `yaml:"fees"`
}

type HospitalSeed struct {
	Name            string `yaml:"name"`
	EmergencyNumber string `yaml:"emergency_number"`
}

type Directory struct {
	Doctors   []DoctorSeed   `yaml:"doctors"`
	Hospitals []HospitalSeed `yaml:"hospitals"`
}

func ParseDirectory(data []byte) (*Directory, error) {
	var d Directory
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse directory seed: %w", err)
	}
	for i, doc := range d.Doctors {
		if doc.Name == "" || doc.Specialist == "" || doc.Fees < 0 {
			return nil, fmt.Errorf("doctor %d: name, specialist and non-negative fees are required", i+1)
		}
		d.Doctors[i].Specialist = doctors.NormalizeSpecialist(doc.Specialist)
	}
	for i, h := range d.Hospitals {
		if h.Name == "" || h.EmergencyNumber == "" {
			return nil, fmt.Errorf("hospital %d: name and emergency_number are required", i+1)
		}
	}
	return &d, nil
}

// SeedAll loads the directory file and inserts every doctor and hospital not
// already present. Existing rows are left untouched.
func SeedAll(path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	dir, err := ParseDirectory(file)
	if err != nil {
		return err
	}
	if err := SeedDoctors(dir.Doctors); err != nil {
		return err
	}
	return SeedHospitals(dir.Hospitals)
}

func SeedDoctors(list []DoctorSeed) error {
	created := 0
	for _, s := range list {
		var existing doctors.Doctor
		err := db.DB.Where("name = ? AND specialist = ?", s.Name, s.Specialist).First(&existing).Error
		if err == nil {
			logrus.Infof("Doctor exists, skipping: %s", s.Name)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("DB error on doctor %s: %w", s.Name, err)
		}

		doc := doctors.Doctor{ID: utils.GenerateUUID(), Name: s.Name, Specialist: s.Specialist, Fees: s.Fees}
		if err := db.DB.Create(&doc).Error; err != nil {
			return fmt.Errorf("failed to create doctor %s: %w", s.Name, err)
		}
		created++
	}
	logrus.Infof("Seeded %d doctors", created)
	return nil
}

func SeedHospitals(list []HospitalSeed) error {
	created := 0
	for _, s := range list {
		var existing hospitals.Hospital
		err := db.DB.Where("name = ?", s.Name).First(&existing).Error
		if err == nil {
			logrus.Infof("Hospital exists, skipping: %s", s.Name)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("DB error on hospital %s: %w", s.Name, err)
		}

		h := hospitals.Hospital{ID: utils.GenerateUUID(), Name: s.Name, EmergencyNumber: s.EmergencyNumber}
		if err := db.DB.Create(&h).Error; err != nil {
			return fmt.Errorf("failed to create hospital %s: %w", s.Name, err)
		}
		created++
	}
	logrus.Infof("Seeded %d hospitals", created)
	return nil
}

// PromoteAdmin gives an existing account the admin role. Registration only
// creates regular users, so this is how the first admin is made.
func PromoteAdmin(email string) error {
	res := db.DB.Model(&auth.User{}).Where("email = ?", auth.NormalizeEmail(email)).Update("role", "admin")
	if res.Error != nil {
		return fmt.Errorf("failed to promote %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no user with email %s", email)
	}
	logrus.Infof("Promoted %s to admin", email)
	return nil
}
