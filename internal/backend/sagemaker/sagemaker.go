package sagemaker

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	sm "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"go.uber.org/zap"

	"xgbdeploy/internal/backend"
	"xgbdeploy/internal/config"
	"xgbdeploy/internal/data"
)

// InvokeBatchRows bounds the rows per InvokeEndpoint call so payloads stay
// well under the 6 MB request limit.
const InvokeBatchRows = 500

type controlAPI interface {
	sm.DescribeTrainingJobAPIClient
	sm.DescribeEndpointAPIClient
	CreateTrainingJob(ctx context.Context, in *sm.CreateTrainingJobInput, optFns ...func(*sm.Options)) (*sm.CreateTrainingJobOutput, error)
	CreateModel(ctx context.Context, in *sm.CreateModelInput, optFns ...func(*sm.Options)) (*sm.CreateModelOutput, error)
	CreateEndpointConfig(ctx context.Context, in *sm.CreateEndpointConfigInput, optFns ...func(*sm.Options)) (*sm.CreateEndpointConfigOutput, error)
	CreateEndpoint(ctx context.Context, in *sm.CreateEndpointInput, optFns ...func(*sm.Options)) (*sm.CreateEndpointOutput, error)
}

type runtimeAPI interface {
	InvokeEndpoint(ctx context.Context, in *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

type Backend struct {
	control controlAPI
	runtime runtimeAPI
	cfg     config.Config
	image   string
	logger  *zap.Logger
	now     func() time.Time
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("carregar credenciais AWS: %w", err)
	}
	return newBackend(sm.NewFromConfig(awsCfg), sagemakerruntime.NewFromConfig(awsCfg), cfg, logger)
}

func newBackend(control controlAPI, runtime runtimeAPI, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	image, err := cfg.Image()
	if err != nil {
		return nil, err
	}
	logger.Info("Região SageMaker",
		zap.String("region", cfg.Region),
		zap.String("container", image),
	)
	return &Backend{control: control, runtime: runtime, cfg: cfg, image: image, logger: logger, now: time.Now}, nil
}

func (b *Backend) jobName() string {
	return "xgboost-" + b.now().UTC().Format("2006-01-02-15-04-05")
}

func (b *Backend) Train(ctx context.Context, in backend.TrainingInput) (backend.Artifact, error) {
	name := b.jobName()
	contentType := in.ContentType
	if contentType == "" {
		contentType = "csv"
	}
	_, err := b.control.CreateTrainingJob(ctx, &sm.CreateTrainingJobInput{
		TrainingJobName: aws.String(name),
		RoleArn:         aws.String(b.cfg.ExecutionRole),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(b.image),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		HyperParameters: in.Hyperparameters.Map(),
		InputDataConfig: []types.Channel{{
			ChannelName: aws.String("train"),
			ContentType: aws.String(contentType),
			DataSource: &types.DataSource{
				S3DataSource: &types.S3DataSource{
					S3DataType:             types.S3DataTypeS3Prefix,
					S3Uri:                  aws.String(in.DataURI),
					S3DataDistributionType: types.S3DataDistributionFullyReplicated,
				},
			},
		}},
		OutputDataConfig: &types.OutputDataConfig{S3OutputPath: aws.String(in.OutputURI)},
		ResourceConfig: &types.ResourceConfig{
			InstanceCount:  aws.Int32(int32(b.cfg.InstanceCount)),
			InstanceType:   types.TrainingInstanceType(b.cfg.InstanceType),
			VolumeSizeInGB: aws.Int32(30),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(b.cfg.TrainingTimeout / time.Second)),
		},
	})
	if err != nil {
		return backend.Artifact{}, fmt.Errorf("criar training job %s: %w", name, err)
	}
	b.logger.Info("Training job submetido", zap.String("job", name), zap.String("data", in.DataURI))

	describe := &sm.DescribeTrainingJobInput{TrainingJobName: aws.String(name)}
	waiter := sm.NewTrainingJobCompletedOrStoppedWaiter(b.control)
	if err := waiter.Wait(ctx, describe, b.cfg.TrainingTimeout+10*time.Minute); err != nil {
		// Failed is a terminal waiter state; the reason only comes from Describe.
		if out, derr := b.control.DescribeTrainingJob(ctx, describe); derr == nil && out.TrainingJobStatus != types.TrainingJobStatusCompleted {
			return backend.Artifact{}, fmt.Errorf("training job %s terminou como %s: %s: %w",
				name, out.TrainingJobStatus, aws.ToString(out.FailureReason), err)
		}
		return backend.Artifact{}, fmt.Errorf("aguardar training job %s: %w", name, err)
	}
	out, err := b.control.DescribeTrainingJob(ctx, describe)
	if err != nil {
		return backend.Artifact{}, err
	}
	if out.TrainingJobStatus != types.TrainingJobStatusCompleted {
		return backend.Artifact{}, fmt.Errorf("training job %s terminou como %s: %s",
			name, out.TrainingJobStatus, aws.ToString(out.FailureReason))
	}
	if out.ModelArtifacts == nil {
		return backend.Artifact{}, fmt.Errorf("training job %s sem artefato de modelo", name)
	}
	art := backend.Artifact{Name: name, URI: aws.ToString(out.ModelArtifacts.S3ModelArtifacts)}
	b.logger.Info("Training job concluído", zap.String("job", name), zap.String("artifact", art.URI))
	return art, nil
}

func (b *Backend) Deploy(ctx context.Context, a backend.Artifact) (backend.Artifact, error) {
	name := a.Name
	if _, err := b.control.CreateModel(ctx, &sm.CreateModelInput{
		ModelName:        aws.String(name),
		ExecutionRoleArn: aws.String(b.cfg.ExecutionRole),
		PrimaryContainer: &types.ContainerDefinition{
			Image:        aws.String(b.image),
			ModelDataUrl: aws.String(a.URI),
		},
	}); err != nil {
		return a, fmt.Errorf("criar modelo %s: %w", name, err)
	}
	if _, err := b.control.CreateEndpointConfig(ctx, &sm.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(name),
		ProductionVariants: []types.ProductionVariant{{
			VariantName:          aws.String("AllTraffic"),
			ModelName:            aws.String(name),
			InitialInstanceCount: aws.Int32(int32(b.cfg.InstanceCount)),
			InstanceType:         types.ProductionVariantInstanceType(b.cfg.InstanceType),
		}},
	}); err != nil {
		return a, fmt.Errorf("criar endpoint config %s: %w", name, err)
	}
	if _, err := b.control.CreateEndpoint(ctx, &sm.CreateEndpointInput{
		EndpointName:       aws.String(name),
		EndpointConfigName: aws.String(name),
	}); err != nil {
		return a, fmt.Errorf("criar endpoint %s: %w", name, err)
	}
	b.logger.Info("Endpoint em criação", zap.String("endpoint", name))

	waiter := sm.NewEndpointInServiceWaiter(b.control)
	if err := waiter.Wait(ctx, &sm.DescribeEndpointInput{EndpointName: aws.String(name)}, b.cfg.DeployTimeout); err != nil {
		return a, fmt.Errorf("aguardar endpoint %s: %w", name, err)
	}
	a.Endpoint = name
	return a, nil
}

func (b *Backend) Predict(ctx context.Context, a backend.Artifact, rows [][]float64) ([]float64, error) {
	if a.Endpoint == "" {
		return nil, fmt.Errorf("artefato %s não foi implantado", a.Name)
	}
	out := make([]float64, 0, len(rows))
	for start := 0; start < len(rows); start += InvokeBatchRows {
		end := start + InvokeBatchRows
		if end > len(rows) {
			end = len(rows)
		}
		resp, err := b.runtime.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
			EndpointName: aws.String(a.Endpoint),
			ContentType:  aws.String(data.ContentTypeCSV),
			Body:         data.EncodeRows(rows[start:end]),
		})
		if err != nil {
			return nil, fmt.Errorf("invocar endpoint %s: %w", a.Endpoint, err)
		}
		ps, err := data.DecodeScores(resp.Body)
		if err != nil {
			return nil, err
		}
		if len(ps) != end-start {
			return nil, fmt.Errorf("endpoint %s retornou %d predições para %d linhas", a.Endpoint, len(ps), end-start)
		}
		out = append(out, ps...)
	}
	return out, nil
}
