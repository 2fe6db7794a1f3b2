package sagemaker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sm "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xgbdeploy/internal/backend"
	"xgbdeploy/internal/config"
)

var _ backend.ModelBackend = (*Backend)(nil)
var _ backend.Deployer = (*Backend)(nil)

type fakeControl struct {
	status   types.TrainingJobStatus
	failure  string
	jobs     []*sm.CreateTrainingJobInput
	models   []*sm.CreateModelInput
	configs  []*sm.CreateEndpointConfigInput
	created  []*sm.CreateEndpointInput
	describe int
}

func (f *fakeControl) CreateTrainingJob(ctx context.Context, in *sm.CreateTrainingJobInput, _ ...func(*sm.Options)) (*sm.CreateTrainingJobOutput, error) {
	f.jobs = append(f.jobs, in)
	return &sm.CreateTrainingJobOutput{}, nil
}

func (f *fakeControl) DescribeTrainingJob(ctx context.Context, in *sm.DescribeTrainingJobInput, _ ...func(*sm.Options)) (*sm.DescribeTrainingJobOutput, error) {
	f.describe++
	out := &sm.DescribeTrainingJobOutput{
		TrainingJobName:   in.TrainingJobName,
		TrainingJobStatus: f.status,
	}
	if f.failure != "" {
		out.FailureReason = aws.String(f.failure)
	}
	if f.status == types.TrainingJobStatusCompleted {
		out.ModelArtifacts = &types.ModelArtifacts{S3ModelArtifacts: aws.String("s3://b/p/output/model.tar.gz")}
	}
	return out, nil
}

func (f *fakeControl) CreateModel(ctx context.Context, in *sm.CreateModelInput, _ ...func(*sm.Options)) (*sm.CreateModelOutput, error) {
	f.models = append(f.models, in)
	return &sm.CreateModelOutput{}, nil
}

func (f *fakeControl) CreateEndpointConfig(ctx context.Context, in *sm.CreateEndpointConfigInput, _ ...func(*sm.Options)) (*sm.CreateEndpointConfigOutput, error) {
	f.configs = append(f.configs, in)
	return &sm.CreateEndpointConfigOutput{}, nil
}

func (f *fakeControl) CreateEndpoint(ctx context.Context, in *sm.CreateEndpointInput, _ ...func(*sm.Options)) (*sm.CreateEndpointOutput, error) {
	f.created = append(f.created, in)
	return &sm.CreateEndpointOutput{}, nil
}

func (f *fakeControl) DescribeEndpoint(ctx context.Context, in *sm.DescribeEndpointInput, _ ...func(*sm.Options)) (*sm.DescribeEndpointOutput, error) {
	return &sm.DescribeEndpointOutput{EndpointName: in.EndpointName, EndpointStatus: types.EndpointStatusInService}, nil
}

type fakeRuntime struct {
	calls []int
}

// InvokeEndpoint answers 0.25 for every row, newline separated.
func (f *fakeRuntime) InvokeEndpoint(ctx context.Context, in *sagemakerruntime.InvokeEndpointInput, _ ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error) {
	n := strings.Count(string(in.Body), "\n")
	f.calls = append(f.calls, n)
	return &sagemakerruntime.InvokeEndpointOutput{Body: []byte(strings.Repeat("0.25\n", n))}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Backend = config.BackendSageMaker
	cfg.Storage = config.StorageS3
	cfg.ExecutionRole = "arn:aws:iam::123456789012:role/demo"
	cfg.TrainingTimeout = time.Minute
	cfg.DeployTimeout = time.Minute
	return cfg
}

func newTestBackend(t *testing.T, control *fakeControl, rt *fakeRuntime) *Backend {
	t.Helper()
	b, err := newBackend(control, rt, testConfig(), zap.NewNop())
	require.NoError(t, err)
	b.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }
	return b
}

func TestTrainSubmitsJob(t *testing.T) {
	control := &fakeControl{status: types.TrainingJobStatusCompleted}
	b := newTestBackend(t, control, &fakeRuntime{})

	art, err := b.Train(context.Background(), backend.TrainingInput{
		DataURI:         "s3://b/p/train",
		OutputURI:       "s3://b/p/output",
		Hyperparameters: config.Default().Hyperparameters,
	})
	require.NoError(t, err)
	require.Equal(t, "xgboost-2024-03-09-14-05-06", art.Name)
	require.Equal(t, "s3://b/p/output/model.tar.gz", art.URI)

	job := control.jobs[0]
	require.Equal(t, "811284229777.dkr.ecr.us-east-1.amazonaws.com/xgboost:latest", *job.AlgorithmSpecification.TrainingImage)
	require.Equal(t, "csv", *job.InputDataConfig[0].ContentType)
	require.Equal(t, "s3://b/p/train", *job.InputDataConfig[0].DataSource.S3DataSource.S3Uri)
	require.Equal(t, "binary:logistic", job.HyperParameters["objective"])
	require.Equal(t, int32(1), *job.ResourceConfig.InstanceCount)
	require.Equal(t, types.TrainingInstanceType("ml.m4.xlarge"), job.ResourceConfig.InstanceType)
}

func TestTrainReportsFailure(t *testing.T) {
	control := &fakeControl{status: types.TrainingJobStatusStopped, failure: "stopped by user"}
	b := newTestBackend(t, control, &fakeRuntime{})
	_, err := b.Train(context.Background(), backend.TrainingInput{DataURI: "s3://b/p/train"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "stopped by user")
}

func TestTrainReportsFailedJobReason(t *testing.T) {
	control := &fakeControl{status: types.TrainingJobStatusFailed, failure: "ClientError: bad csv"}
	b := newTestBackend(t, control, &fakeRuntime{})
	_, err := b.Train(context.Background(), backend.TrainingInput{DataURI: "s3://b/p/train"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ClientError: bad csv")
	require.Contains(t, err.Error(), string(types.TrainingJobStatusFailed))
}

func TestDeployCreatesEndpoint(t *testing.T) {
	control := &fakeControl{}
	b := newTestBackend(t, control, &fakeRuntime{})
	art, err := b.Deploy(context.Background(), backend.Artifact{Name: "xgboost-1", URI: "s3://b/model.tar.gz"})
	require.NoError(t, err)
	require.Equal(t, "xgboost-1", art.Endpoint)
	require.Equal(t, "s3://b/model.tar.gz", *control.models[0].PrimaryContainer.ModelDataUrl)
	require.Equal(t, "xgboost-1", *control.configs[0].ProductionVariants[0].ModelName)
	require.Equal(t, "xgboost-1", *control.created[0].EndpointConfigName)
}

func TestPredictChunksRequests(t *testing.T) {
	rt := &fakeRuntime{}
	b := newTestBackend(t, &fakeControl{}, rt)
	rows := make([][]float64, InvokeBatchRows+7)
	for i := range rows {
		rows[i] = []float64{float64(i), 1}
	}
	ps, err := b.Predict(context.Background(), backend.Artifact{Name: "x", Endpoint: "x"}, rows)
	require.NoError(t, err)
	require.Len(t, ps, len(rows))
	require.Equal(t, []int{InvokeBatchRows, 7}, rt.calls)
	require.Equal(t, 0.25, ps[0])
}

func TestPredictRequiresEndpoint(t *testing.T) {
	b := newTestBackend(t, &fakeControl{}, &fakeRuntime{})
	_, err := b.Predict(context.Background(), backend.Artifact{Name: "x"}, [][]float64{{1}})
	require.Error(t, err)
}
