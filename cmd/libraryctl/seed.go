package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/listenupapp/library-server/internal/api"
	"github.com/listenupapp/library-server/internal/category"
	"github.com/listenupapp/library-server/internal/service"
)

type seedLibrary struct {
	name, address, phone, hours string
	lat, lon                    float64
}

type seedBook struct {
	library       int // index into seedLibraries
	title, author string
	isbn          string
	year          int
	category      string
	copies        int
}

var seedLibraries = []seedLibrary{
	{"Jongno Public Library", "9-1 Sajik-ro, Jongno-gu, Seoul", "02-721-0711", "09:00-22:00", 37.5762, 126.9687},
	{"Gangnam Library", "21 Hakdong-ro 43-gil, Gangnam-gu, Seoul", "02-3448-4741", "09:00-18:00", 37.5155, 127.0400},
	{"Busan Citizens Library", "73 Sijeong-ro, Busanjin-gu, Busan", "051-810-8200", "09:00-21:00", 35.1686, 129.0573},
}

var seedBooks = []seedBook{
	{0, "Cosmos", "Carl Sagan", "9780345539434", 1980, category.Science, 2},
	{0, "A Brief History of Time", "Stephen Hawking", "9780553380163", 1988, "물리학", 1},
	{0, "The Selfish Gene", "Richard Dawkins", "9780198788607", 1976, "생물학", 3},
	{1, "The Pragmatic Programmer", "Andrew Hunt", "9780135957059", 2019, category.ComputerIT, 2},
	{1, "Structure and Interpretation of Computer Programs", "Harold Abelson", "9780262510875", 1996, category.ComputerIT, 1},
	{1, "Sapiens", "Yuval Noah Harari", "9780062316097", 2015, category.SocialScience, 2},
	{2, "The Vegetarian", "Han Kang", "9780553448184", 2016, category.Literature, 2},
	{2, "Pachinko", "Min Jin Lee", "9781455563937", 2017, category.Literature, 1},
	{2, "The Gene", "Siddhartha Mukherjee", "9781476733524", 2016, category.NaturalScience, 1},
}

var seedUsers = []service.CreateUserRequest{
	{Username: "minji", Email: "minji@example.com", FullName: "Kim Minji"},
	{Username: "jisoo", Email: "jisoo@example.com", FullName: "Park Jisoo"},
	{Username: "hyunwoo", Email: "hyunwoo@example.com", FullName: "Lee Hyunwoo"},
}

// SeedResult counts the records created by seed.
type SeedResult struct {
	Libraries    int `json:"libraries"`
	Books        int `json:"books"`
	Users        int `json:"users"`
	Loans        int `json:"loans"`
	Reservations int `json:"reservations"`
}

func newSeedCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo libraries, books and patrons",
		Long: `Seed creates a small demo catalog: three libraries, a handful of books
across the standard categories, three patrons, a couple of loans and one
reservation waiting on a checked-out book.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command) error {
			svc, err := invoke[*api.Services](a)
			if err != nil {
				return err
			}

			existing, err := svc.Library.ListLibraries(cmd.Context())
			if err != nil {
				return err
			}
			if len(existing) > 0 && !force {
				return fmt.Errorf("database already has %d libraries; pass --force to add demo data anyway", len(existing))
			}

			result, err := seedDemo(cmd.Context(), svc)
			if err != nil {
				return err
			}

			return newPrinter(cmd.OutOrStdout(), a.jsonOutput).emit(result, func(tw *tabwriter.Writer) {
				row(tw, "Libraries", result.Libraries)
				row(tw, "Books", result.Books)
				row(tw, "Users", result.Users)
				row(tw, "Loans", result.Loans)
				row(tw, "Reservations", result.Reservations)
			})
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "Seed even if libraries already exist")
	return cmd
}

// seedDemo creates the demo catalog through the services so every record
// passes the same validation and bookkeeping as an API request.
func seedDemo(ctx context.Context, s *api.Services) (*SeedResult, error) {
	result := &SeedResult{}

	libraryIDs := make([]string, len(seedLibraries))
	for i, l := range seedLibraries {
		lat, lon := l.lat, l.lon
		lib, err := s.Library.CreateLibrary(ctx, service.CreateLibraryRequest{
			Name:         l.name,
			Address:      l.address,
			Phone:        l.phone,
			OpeningHours: l.hours,
			Latitude:     &lat,
			Longitude:    &lon,
		})
		if err != nil {
			return nil, fmt.Errorf("create library %q: %w", l.name, err)
		}
		libraryIDs[i] = lib.ID
		result.Libraries++
	}

	bookIDs := make([]string, len(seedBooks))
	for i, b := range seedBooks {
		year := b.year
		book, err := s.Book.CreateBook(ctx, service.CreateBookRequest{
			LibraryID:       libraryIDs[b.library],
			Title:           b.title,
			Author:          b.author,
			ISBN:            b.isbn,
			PublicationYear: &year,
			Category:        b.category,
			TotalCopies:     b.copies,
		})
		if err != nil {
			return nil, fmt.Errorf("create book %q: %w", b.title, err)
		}
		bookIDs[i] = book.ID
		result.Books++
	}

	userIDs := make([]string, len(seedUsers))
	for i, u := range seedUsers {
		user, err := s.User.CreateUser(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("create user %q: %w", u.Username, err)
		}
		userIDs[i] = user.ID
		result.Users++
	}

	// "A Brief History of Time" has a single copy: lend it out and queue a
	// second patron behind it.
	loans := []service.CreateLoanRequest{
		{UserID: userIDs[0], BookID: bookIDs[1]},
		{UserID: userIDs[1], BookID: bookIDs[3]},
	}
	for _, req := range loans {
		if _, err := s.Loan.CreateLoan(ctx, req); err != nil {
			return nil, fmt.Errorf("create loan: %w", err)
		}
		result.Loans++
	}

	if _, err := s.Reservation.CreateReservation(ctx, service.CreateReservationRequest{
		UserID: userIDs[2],
		BookID: bookIDs[1],
	}); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	result.Reservations++

	return result, nil
}
