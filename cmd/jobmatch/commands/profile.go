package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jinford/jobmatch/internal/core/profile"
)

// ProfileCreateAction はプロファイルを作成するコマンドのアクション
func ProfileCreateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	p := &profile.UserProfile{
		Name:                  cmd.String("name"),
		Email:                 cmd.String("email"),
		Skills:                splitList(cmd.String("skills")),
		TargetSalaryCurrency:  cmd.String("currency"),
		WillingToRelocate:     cmd.Bool("relocate"),
		PreferredCompanySizes: splitList(cmd.String("company-sizes")),
		PreferredIndustries:   splitList(cmd.String("industries")),
	}

	if years := cmd.Int("years"); years >= 0 {
		y := int(years)
		p.YearsOfExperience = &y
	}
	if level := cmd.String("level"); level != "" {
		l := profile.ExperienceLevel(level)
		p.ExpLevel = &l
	}
	if min := cmd.Int("salary-min"); min > 0 {
		m := int(min)
		p.TargetSalaryMin = &m
	}
	if max := cmd.Int("salary-max"); max > 0 {
		m := int(max)
		p.TargetSalaryMax = &m
	}
	if loc := cmd.String("location"); loc != "" {
		p.PreferredLocation = &loc
	}
	if remote := cmd.String("remote"); remote != "" {
		p.RemotePref = profile.RemotePreference(remote)
	}
	if resumeFile := cmd.String("resume"); resumeFile != "" {
		data, err := os.ReadFile(resumeFile)
		if err != nil {
			return fmt.Errorf("レジュメファイルの読み込みに失敗: %w", err)
		}
		p.ResumeText = string(data)
	}

	created, err := appCtx.Profiles.Create(ctx, p, cmd.Bool("activate"))
	if err != nil {
		return err
	}

	fmt.Printf("created profile %s (active=%t)\n", created.ID, created.IsActive)
	return nil
}

// ProfileActivateAction はプロファイルをアクティブ化するコマンドのアクション
func ProfileActivateAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	id, err := uuid.Parse(cmd.String("id"))
	if err != nil {
		return fmt.Errorf("プロファイルIDの形式が不正: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.Profiles.Activate(ctx, id); err != nil {
		return err
	}

	fmt.Printf("activated profile %s\n", id)
	return nil
}

// ProfileShowAction はアクティブプロファイルを表示するコマンドのアクション
func ProfileShowAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	p, err := appCtx.Profiles.GetActive(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("profile %s\n", p.ID)
	fmt.Printf("  name:   %s\n", p.Name)
	fmt.Printf("  email:  %s\n", p.Email)
	fmt.Printf("  skills: %s\n", strings.Join(p.Skills, ", "))
	if p.ExpLevel != nil {
		fmt.Printf("  level:  %s\n", *p.ExpLevel)
	}
	if p.TargetSalaryMin != nil && p.TargetSalaryMax != nil {
		fmt.Printf("  target salary: %d-%d %s\n", *p.TargetSalaryMin, *p.TargetSalaryMax, p.TargetSalaryCurrency)
	}
	fmt.Printf("  remote: %s\n", p.RemotePref)
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
