package main

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/footpulse/core/survey"
	"github.com/trezcool/footpulse/core/user"
)

const seedPassword = "password123"

// seed loads the demo academy accounts and the default evaluation template.
// It is idempotent: existing accounts (matched by email) are updated in place
// and the template is only created when none exists yet.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	seedUser := func(name, email, mobile, role string, trainerID, playerID null.String) (user.User, error) {
		usr := user.User{
			Name:      name,
			Email:     email,
			Mobile:    null.StringFrom(mobile),
			Role:      role,
			TrainerID: trainerID,
			PlayerID:  playerID,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		usr.SetActive(true)
		if err := usr.SetPassword(seedPassword); err != nil {
			return user.User{}, err
		}
		return cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	}

	if _, err := seedUser("Academy Director", "admin@footpulse.app", "+44 7700 900000", user.RoleAdmin, null.String{}, null.String{}); err != nil {
		return err
	}
	trainer, err := seedUser("Coach Mike Johnson", "mike@footpulse.app", "+44 7700 900001", user.RoleTrainer, null.String{}, null.String{})
	if err != nil {
		return err
	}
	player, err := seedUser("Leo Messi Jr.", "leo@footpulse.app", "+44 7700 900002", user.RolePlayer, null.StringFrom(trainer.ID), null.String{})
	if err != nil {
		return err
	}
	if _, err = seedUser("Jorge Messi", "jorge@footpulse.app", "+44 7700 900003", user.RoleGuardian, null.String{}, null.StringFrom(player.ID)); err != nil {
		return err
	}

	templates, err := cli.tmplRepo.QueryTemplates(ctx)
	if err != nil {
		return err
	}
	if len(templates) > 0 {
		return nil
	}

	now := time.Now().UTC()
	_, err = cli.tmplRepo.CreateTemplate(ctx, survey.Template{
		Name:          "Trainer's Monthly Player Evaluation",
		ArName:        "تقييم المدرب الشهري للاعب",
		Description:   "Comprehensive performance review covering technical, physical, and behavioral metrics.",
		ArDescription: "مراجعة شاملة للأداء تغطي المقاييس الفنية والبدنية والسلوكية.",
		Categories: survey.Categories{
			{
				ID:     "c-tech",
				Name:   "Technical Proficiency",
				ArName: "الكفاءة الفنية",
				Weight: 100,
				Questions: []survey.Question{
					{
						ID:     "q-tech-1",
						Text:   "Ball Control & First Touch",
						ArText: "التحكم بالكرة واللمسة الأولى",
						Weight: 100,
						Type:   "RATING",
					},
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	return err
}
