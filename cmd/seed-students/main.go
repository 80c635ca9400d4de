package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/tugas-backend/internal/config"
	"github.com/stemsi/tugas-backend/internal/database"
	"github.com/stemsi/tugas-backend/internal/logger"
	"github.com/stemsi/tugas-backend/internal/model"
	"github.com/stemsi/tugas-backend/internal/repository"
)

// seed-students fills the roster for one class/section so submission
// progress has a denominator in development.
func main() {
	var (
		class   string
		section string
		count   int
	)
	flag.StringVar(&class, "class", "V", "Class to enrol into")
	flag.StringVar(&section, "section", "A", "Section to enrol into")
	flag.IntVar(&count, "count", 30, "Number of students (max 50)")
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

	roster := repository.NewRosterRepository(pool)

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
		"Hendra Gunawan", "Ika Sari", "Jamal Mirdad", "Kiki Fatmala", "Lukman Hakim",
		"Maya Septiana", "Nanda Pratama", "Oki Setiana", "Putri Dian", "Qori Maharani",
		"Rafi Ahmad", "Siska Saraswati", "Toni Setiawan", "Umi Kalsum", "Vina Panduwinata",
		"Wahyu Hidayat", "Xena Maharani", "Yudi Pratama", "Zaki Anwar", "Alifia Zahra",
		"Bagas Saputra", "Citra Kirana", "Dimas Anggara", "Elisa Novita", "Fikri Maulana",
		"Gali Rakasiwi", "Hani Hanifah", "Iqbal Ramadhan", "Jasmine Azzahra", "Kevin Sanjaya",
		"Larasati Dewi", "Miko Pambudi", "Nia Ramadhani", "Oscar Lawalata", "Puput Melati",
		"Reza Rahadian", "Sari Nila", "Tigor Siahaan", "Utari Maharani", "Vicky Prasetyo",
	}
	if count > len(names) {
		count = len(names)
	}

	fmt.Printf("=== Enrolling %d students into %s/%s ===\n", count, class, section)

	successCount := 0
	for i := 0; i < count; i++ {
		student := &model.RosterStudent{
			ID:      fmt.Sprintf("%s%s-%03d", class, section, i+1),
			Name:    names[i],
			Class:   class,
			Section: section,
		}

		if err := roster.Enroll(ctx, student); err != nil {
			fmt.Printf("Error enrolling %s (%s): %v\n", student.Name, student.ID, err)
			continue
		}
		successCount++
		if (i+1)%10 == 0 {
			fmt.Printf("Enrolled %d students...\n", i+1)
		}
	}

	total, err := roster.CountStudents(ctx, class, section)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count roster")
	}
	fmt.Printf("\nSeed completed! Enrolled %d/%d students; %s/%s now has %d.\n", successCount, count, class, section, total)
}
