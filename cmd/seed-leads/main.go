package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/database"
	"github.com/stemsi/abroad-backend/internal/logger"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
	"github.com/stemsi/abroad-backend/internal/repository"
	"github.com/stemsi/abroad-backend/internal/service"
)

type seedCourse struct {
	name     string
	level    model.EducationLevel
	fee      float64
	currency string
}

var catalogue = []struct {
	name    string
	country string
	courses []seedCourse
}{
	{"University of Toronto", "Canada", []seedCourse{
		{"MSc Computer Science", model.LevelMasters, 125, "CAD"},
		{"BCom Commerce", model.LevelBachelors, 180, "CAD"},
	}},
	{"University of Melbourne", "Australia", []seedCourse{
		{"Master of Data Science", model.LevelMasters, 100, "AUD"},
	}},
	{"Technical University of Munich", "Germany", []seedCourse{
		{"MSc Informatics", model.LevelMasters, 0, "EUR"},
		{"BSc Mechanical Engineering", model.LevelBachelors, 0, "EUR"},
	}},
}

var names = []string{
	"Aarav Sharma", "Priya Patel", "Rohan Mehta", "Ananya Iyer", "Kabir Singh",
	"Ishita Rao", "Vihaan Gupta", "Saanvi Nair", "Arjun Reddy", "Diya Kapoor",
	"Nikhil Joshi", "Meera Pillai", "Aditya Verma", "Kavya Menon", "Siddharth Das",
	"Tara Bose", "Yash Malhotra", "Riya Chatterjee", "Dev Khanna", "Nisha Kulkarni",
}

func main() {
	leads := flag.Int("leads", 15, "Number of bare leads to create")
	complete := flag.Int("complete", 5, "Number of students with a complete profile to create")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Going through the services keeps running servers' list caches coherent.
	listCache := querycache.NewRedisStore(rdb, cfg.ListCacheTTL, log)
	catalogueService := service.NewCatalogueService(repository.NewCatalogueRepository(pool), listCache, log)
	studentService := service.NewStudentService(repository.NewStudentRepository(pool), listCache, log)

	// ─── Catalogue ─────────────────────────────────────────────────────
	fmt.Println("=== Seeding catalogue ===")
	existing, err := catalogueService.ListUniversities(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list universities")
	}
	byName := make(map[string]string, len(existing))
	for _, u := range existing {
		byName[u.Name] = u.ID
	}

	for _, entry := range catalogue {
		universityID, ok := byName[entry.name]
		if !ok {
			u, err := catalogueService.CreateUniversity(ctx, model.CreateUniversityRequest{Name: entry.name, Country: entry.country})
			if err != nil {
				log.Fatal().Err(err).Str("university", entry.name).Msg("Failed to create university")
			}
			universityID = u.ID
			fmt.Printf("Created university %s\n", entry.name)
		}

		for _, c := range entry.courses {
			_, err := catalogueService.CreateCourse(ctx, model.CreateCourseRequest{
				UniversityID:   universityID,
				Name:           c.name,
				Level:          string(c.level),
				ApplicationFee: c.fee,
				Currency:       c.currency,
			})
			switch {
			case err == nil:
				fmt.Printf("  + %s (%.2f %s)\n", c.name, c.fee, c.currency)
			case errors.Is(err, repository.ErrDuplicateCourse):
				fmt.Printf("  = %s already exists\n", c.name)
			default:
				log.Fatal().Err(err).Str("course", c.name).Msg("Failed to create course")
			}
		}
	}

	// ─── Students ──────────────────────────────────────────────────────
	total := *leads + *complete
	fmt.Printf("=== Seeding %d students (%d complete) ===\n", total, *complete)

	created, skipped := 0, 0
	for i := 0; i < total; i++ {
		first, last, _ := strings.Cut(names[i%len(names)], " ")
		lead := model.CreateLeadRequest{
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprintf("%s.%s%02d@example.com", strings.ToLower(first), strings.ToLower(last), i+1),
			Phone:     fmt.Sprintf("+9198%08d", i+1),
		}

		if i < *complete {
			_, err = studentService.Register(ctx, model.RegisterStudentRequest{
				CreateLeadRequest:     lead,
				PersonalInfo:          personalInfo(i),
				AcademicQualification: qualification(),
				Documents:             documents(lead.Email),
				WorkExperiences:       []model.WorkExperience{},
			})
		} else {
			_, err = studentService.CreateLead(ctx, lead)
		}

		switch {
		case err == nil:
			created++
		case errors.Is(err, repository.ErrDuplicateStudentEmail):
			skipped++
		default:
			fmt.Printf("Error creating %s %s: %v\n", first, last, err)
		}
	}

	fmt.Printf("\nSeed completed! Created %d students, skipped %d existing.\n", created, skipped)
}

func personalInfo(i int) *model.PersonalInfo {
	gender := "MALE"
	if i%2 == 1 {
		gender = "FEMALE"
	}
	return &model.PersonalInfo{
		DateOfBirth:    fmt.Sprintf("200%d-0%d-15", i%5, i%9+1),
		Gender:         gender,
		Nationality:    "Indian",
		PassportNumber: fmt.Sprintf("P%07d", i+1),
		Address:        fmt.Sprintf("%d MG Road", 10+i),
		City:           "Bengaluru",
		Country:        "India",
	}
}

func qualification() *model.AcademicQualification {
	return &model.AcademicQualification{
		HighestLevelOfEducation: model.LevelBachelors,
		LevelOfStudies: map[model.EducationLevel]model.LevelOfStudy{
			model.LevelGradeTwelve: {Institution: "Delhi Public School", Grade: "91%", YearOfCompletion: 2019},
			model.LevelBachelors:   {Institution: "Christ University", Program: "BSc Computer Science", Grade: "8.4", YearOfCompletion: 2023},
		},
	}
}

func documents(email string) *model.Documents {
	prefix := strings.SplitN(email, "@", 2)[0]
	return &model.Documents{
		CV:                   prefix + "-cv.pdf",
		GradeTenMarksheet:    prefix + "-g10.pdf",
		GradeTwelveMarksheet: prefix + "-g12.pdf",
		Passport:             prefix + "-passport.pdf",
		IELTS:                prefix + "-ielts.pdf",
		RecommendationLetter: prefix + "-lor.pdf",
	}
}
