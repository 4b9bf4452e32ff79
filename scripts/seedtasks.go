package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Emits INSERT statements for the starter task plan of one user, for
// backfilling accounts that onboarded before task seeding existed.
//
// Usage: go run scripts/seedtasks.go <user-uuid>
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: seedtasks <user-uuid>")
		os.Exit(1)
	}
	userID, err := uuid.Parse(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid user uuid:", err)
		os.Exit(1)
	}

	type task struct {
		title, description, typ string
		points                  int
	}
	plan := []task{
		{"Deep breathing", "Do 10 slow deep breaths when a craving hits.", "breathing", 10},
		{"Drink a glass of water", "Replace the first cigarette urge with a full glass of water.", "water", 5},
		{"Write down a trigger", "Note one situation that made you want to smoke today.", "write", 10},
		{"Take a short walk", "Walk for 5 minutes instead of taking a smoke break.", "walk", 15},
		{"Refuse one cigarette", "Say no to one cigarette you would normally smoke.", "refuse", 20},
	}

	for day := 0; day < 7; day++ {
		for _, t := range plan {
			fmt.Printf(
				"INSERT INTO tasks (id, user_id, title, description, type, points, day) VALUES ('%s', '%s', '%s', '%s', '%s', %d, %d);\n",
				uuid.NewString(), userID, t.title, t.description, t.typ, t.points, day,
			)
		}
	}
}
