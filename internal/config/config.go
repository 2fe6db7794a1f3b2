package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	BackendSageMaker = "sagemaker"
	BackendLocal     = "local"

	StorageS3    = "s3"
	StorageGCS   = "gcs"
	StorageLocal = "local"

	DefaultDatasetURL = "https://d1.awsstatic.com/tmt/build-train-deploy-machine-learning-model-sagemaker/" +
		"bank_clean.27f01fbbdf43271788427f3682996ae29ceca05d.csv"
)

// XGBoost containers published per region.
var containers = map[string]string{
	"us-west-2": "433757028032.dkr.ecr.us-west-2.amazonaws.com/xgboost:latest",
	"us-east-1": "811284229777.dkr.ecr.us-east-1.amazonaws.com/xgboost:latest",
	"us-east-2": "825641698319.dkr.ecr.us-east-2.amazonaws.com/xgboost:latest",
	"eu-west-1": "685385470294.dkr.ecr.eu-west-1.amazonaws.com/xgboost:latest",
}

type Hyperparameters struct {
	MaxDepth       int     `yaml:"max_depth" validate:"gte=1"`
	Eta            float64 `yaml:"eta" validate:"gt=0,lte=1"`
	Gamma          float64 `yaml:"gamma" validate:"gte=0"`
	MinChildWeight float64 `yaml:"min_child_weight" validate:"gte=0"`
	Subsample      float64 `yaml:"subsample" validate:"gt=0,lte=1"`
	Silent         int     `yaml:"silent"`
	Objective      string  `yaml:"objective" validate:"required"`
	NumRound       int     `yaml:"num_round" validate:"gte=1"`
}

func (h Hyperparameters) Map() map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return map[string]string{
		"max_depth":        strconv.Itoa(h.MaxDepth),
		"eta":              f(h.Eta),
		"gamma":            f(h.Gamma),
		"min_child_weight": f(h.MinChildWeight),
		"subsample":        f(h.Subsample),
		"silent":           strconv.Itoa(h.Silent),
		"objective":        h.Objective,
		"num_round":        strconv.Itoa(h.NumRound),
	}
}

type Config struct {
	BucketName      string          `yaml:"bucket_name" validate:"required"`
	Region          string          `yaml:"region" validate:"required"`
	ExecutionRole   string          `yaml:"execution_role" validate:"required_if=Backend sagemaker"`
	TrainingImage   string          `yaml:"training_image"`
	Prefix          string          `yaml:"prefix"`
	DatasetURL      string          `yaml:"dataset_url" validate:"omitempty,url"`
	DataDir         string          `yaml:"data_dir" validate:"required"`
	Seed            int64           `yaml:"seed"`
	Backend         string          `yaml:"backend" validate:"oneof=sagemaker local"`
	Storage         string          `yaml:"storage" validate:"oneof=s3 gcs local"`
	GCSProject      string          `yaml:"gcs_project" validate:"required_if=Storage gcs"`
	InstanceType    string          `yaml:"instance_type" validate:"required"`
	InstanceCount   int             `yaml:"instance_count" validate:"gte=1"`
	Algo            string          `yaml:"algo" validate:"oneof=gb lgbm"`
	LedgerPath      string          `yaml:"ledger_path"`
	ReportImage     string          `yaml:"report_image"`
	TrainingTimeout time.Duration   `yaml:"training_timeout"`
	DeployTimeout   time.Duration   `yaml:"deploy_timeout"`
	Hyperparameters Hyperparameters `yaml:"hyperparameters"`
}

func Default() Config {
	return Config{
		BucketName:      "xgbdeploy-demo",
		Region:          "us-east-1",
		Prefix:          "sagemaker/DEMO-xgboost-dm",
		DatasetURL:      DefaultDatasetURL,
		DataDir:         "data",
		Seed:            1729,
		Backend:         BackendLocal,
		Storage:         StorageLocal,
		InstanceType:    "ml.m4.xlarge",
		InstanceCount:   1,
		Algo:            "gb",
		LedgerPath:      "data/runs.db",
		ReportImage:     "data/confusion.png",
		TrainingTimeout: 2 * time.Hour,
		DeployTimeout:   30 * time.Minute,
		Hyperparameters: Hyperparameters{
			MaxDepth:       5,
			Eta:            0.2,
			Gamma:          4,
			MinChildWeight: 6,
			Subsample:      0.8,
			Silent:         0,
			Objective:      "binary:logistic",
			NumRound:       100,
		},
	}
}

// Load layers the YAML file at path (if any) and environment overrides on
// top of Default, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("ler config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("decodificar config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BUCKET_NAME"); v != "" {
		c.BucketName = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("SAGEMAKER_ROLE_ARN"); v != "" {
		c.ExecutionRole = v
	}
	if v := os.Getenv("TRAINING_IMAGE"); v != "" {
		c.TrainingImage = v
	}
	if v := os.Getenv("MODEL_BACKEND"); v != "" {
		c.Backend = v
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config inválida: %w", err)
	}
	if c.Backend == BackendSageMaker {
		if c.Storage != StorageS3 {
			return fmt.Errorf("config inválida: backend sagemaker exige storage s3, recebido %q", c.Storage)
		}
		if _, err := c.Image(); err != nil {
			return err
		}
	}
	if c.Backend == BackendLocal && c.Storage != StorageLocal {
		return fmt.Errorf("config inválida: backend local exige storage local, recebido %q", c.Storage)
	}
	return nil
}

func (c Config) Image() (string, error) {
	if c.TrainingImage != "" {
		return c.TrainingImage, nil
	}
	img, ok := containers[c.Region]
	if !ok {
		return "", fmt.Errorf("sem imagem de treino para a região %q", c.Region)
	}
	return img, nil
}

func (c Config) Key(elem ...string) string {
	return path.Join(append([]string{c.Prefix}, elem...)...)
}
