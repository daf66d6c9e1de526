package codegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"appforge/internal/config"
	"appforge/internal/domain"
	"appforge/internal/domain/models"
	"appforge/internal/domain/repositories"
	"appforge/internal/domain/services"
)

const deployKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Deployer copies a build or materialization output into a publicly
// addressable deploy slot under a stable per-target key.
type Deployer struct {
	apps        repositories.AppRepository
	builder     *ProjectBuilder
	screenshots services.ScreenshotTrigger
	outputRoot  string
	deployRoot  string
	deployHost  string
	logger      *slog.Logger
}

// NewDeployer creates a Deployer. screenshots may be nil to disable
// post-deploy capture entirely.
func NewDeployer(
	apps repositories.AppRepository,
	builder *ProjectBuilder,
	screenshots services.ScreenshotTrigger,
	cfg *config.Config,
	logger *slog.Logger,
) *Deployer {
	return &Deployer{
		apps:        apps,
		builder:     builder,
		screenshots: screenshots,
		outputRoot:  cfg.OutputRoot,
		deployRoot:  cfg.DeployRoot,
		deployHost:  strings.TrimRight(cfg.DeployHost, "/"),
		logger:      logger,
	}
}

// Deploy publishes the target's materialized output and returns the public
// URL. Preconditions (target exists, caller owns it, source directory
// exists) are enforced before any filesystem action; violation aborts with
// no side effects. Build-based layouts build first and deploy the dist
// directory. A failed build leaves any existing deploy slot untouched.
func (d *Deployer) Deploy(ctx context.Context, appID, userID string) (string, error) {
	app, err := d.apps.GetApp(ctx, appID)
	if err != nil {
		return "", err
	}
	if app.UserID != userID {
		return "", &domain.ForbiddenError{Message: "only the owner can deploy this app"}
	}

	sourceDir := filepath.Join(d.outputRoot, fmt.Sprintf("%s_%s", app.CodeGenType, app.ID))
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return "", &domain.NotFoundError{Message: "app code does not exist, generate it first"}
	}

	if app.CodeGenType == models.CodeGenVueProject {
		if err := d.builder.Build(ctx, sourceDir); err != nil {
			return "", err
		}
		sourceDir = filepath.Join(sourceDir, distDirName)
	}

	// Deploy key is generated once per target and reused on redeploy
	deployKey := ""
	if app.DeployKey != nil {
		deployKey = *app.DeployKey
	}
	if deployKey == "" {
		deployKey, err = generateDeployKey(config.DeployKeyLength)
		if err != nil {
			return "", fmt.Errorf("generate deploy key: %w", err)
		}
	}

	deployDir := filepath.Join(d.deployRoot, deployKey)
	if err := copyDir(sourceDir, deployDir); err != nil {
		return "", fmt.Errorf("%w: copy to deploy slot: %v", domain.ErrIO, err)
	}

	if err := d.apps.UpdateDeployment(ctx, app.ID, deployKey, time.Now()); err != nil {
		return "", fmt.Errorf("record deployment: %w", err)
	}

	url := fmt.Sprintf("%s/%s/", d.deployHost, deployKey)

	d.logger.Info("app deployed",
		"app_id", app.ID,
		"deploy_key", deployKey,
		"url", url,
	)

	// Fire-and-forget: screenshot failure must not fail or roll back the deploy
	if d.screenshots != nil {
		d.screenshots.TriggerCapture(app.ID, url)
	}

	return url, nil
}

// generateDeployKey produces a random alphanumeric slot key.
func generateDeployKey(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = deployKeyAlphabet[int(buf[i])%len(deployKeyAlphabet)]
	}
	return string(buf), nil
}

// copyDir recursively copies the contents of src into dst, overwriting
// existing files. The deploy slot is replaced wholesale, not versioned.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
