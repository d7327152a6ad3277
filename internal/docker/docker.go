package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"kube-topology/internal/config"
	"kube-topology/internal/logger"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"
)

const (
	// ContainerName is the name of the managed Neo4j container.
	ContainerName = "kube-topology-neo4j"
	// DataDir is the host directory mounted as the Neo4j data volume.
	DataDir = "neo4j-data"

	boltPort    = "7687"
	browserPort = "7474"
	stopTimeout = 10 // seconds
)

// ErrContainerNotFound is returned when the managed container does not exist.
var ErrContainerNotFound = errors.New("container not found")

// API is the part of the Docker client used here.
type API interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
}

// NewClient creates a Docker client from the environment.
func NewClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return cli, nil
}

// StartContainerOptions configures StartContainer.
type StartContainerOptions struct {
	Config *config.Config
	// DataDir defaults to DataDir in the working directory.
	DataDir string
	Out     io.Writer
	Log     *logrus.Entry
}

// StartContainer pulls the configured Neo4j image and starts the managed
// container. A running container is left alone; a stopped one is started.
func StartContainer(ctx context.Context, api API, opts StartContainerOptions) error {
	log := logger.OrDiscard(opts.Log).WithField("container", ContainerName)
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	neo := opts.Config.Neo4j
	if neo.Password == "" {
		return fmt.Errorf("neo4j password is not set in configuration file")
	}

	existing, err := findContainer(ctx, api, ContainerName)
	if err != nil && !errors.Is(err, ErrContainerNotFound) {
		return err
	}
	if existing != nil {
		if existing.State == container.StateRunning {
			fmt.Fprintf(out, "✓ Container %s is already running\n", ContainerName)
			return nil
		}
		log.WithField("state", existing.State).Debug("starting existing container")
		if err := api.ContainerStart(ctx, existing.ID, container.StartOptions{}); err != nil {
			return fmt.Errorf("failed to start container: %w", err)
		}
		fmt.Fprintf(out, "✓ Container %s started\n", ContainerName)
		return nil
	}

	dataDir, err := dataDirectory(opts.DataDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Pulling image %s...\n", neo.DockerImage)
	reader, err := api.ImagePull(ctx, neo.DockerImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", neo.DockerImage, err)
	}
	_, err = io.Copy(io.Discard, reader)
	reader.Close()
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", neo.DockerImage, err)
	}

	containerCfg, hostCfg := containerConfig(neo, dataDir)
	resp, err := api.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, ContainerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	for _, w := range resp.Warnings {
		log.Warn(w)
	}

	if err := api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	fmt.Fprintf(out, "✓ Container %s started\n", ContainerName)
	fmt.Fprintf(out, "  Bolt:    bolt://localhost:%s\n", boltPort)
	fmt.Fprintf(out, "  Browser: http://localhost:%s\n", browserPort)
	return nil
}

// StopContainer stops and removes the managed container. The data
// directory is left in place.
func StopContainer(ctx context.Context, api API, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	c, err := findContainer(ctx, api, ContainerName)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Stopping container %s...\n", ContainerName)
	timeout := stopTimeout
	if err := api.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
		// Container might already be stopped, try to remove anyway
		fmt.Fprintf(out, "Warning: failed to stop container: %v\n", err)
	} else {
		fmt.Fprintf(out, "✓ Container stopped\n")
	}

	fmt.Fprintf(out, "Removing container %s...\n", ContainerName)
	if err := api.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}

	fmt.Fprintf(out, "✓ Container %s removed successfully\n", ContainerName)
	return nil
}

func findContainer(ctx context.Context, api API, name string) (*container.Summary, error) {
	containers, err := api.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	for i := range containers {
		for _, n := range containers[i].Names {
			if n == "/"+name {
				return &containers[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
}

func containerConfig(neo config.Neo4jConfig, dataDir string) (*container.Config, *container.HostConfig) {
	bolt := nat.Port(boltPort + "/tcp")
	browser := nat.Port(browserPort + "/tcp")

	return &container.Config{
			Image: neo.DockerImage,
			Env:   []string{fmt.Sprintf("NEO4J_AUTH=%s/%s", neo.User, neo.Password)},
			ExposedPorts: nat.PortSet{
				bolt:    struct{}{},
				browser: struct{}{},
			},
		}, &container.HostConfig{
			Binds: []string{dataDir + ":/data"},
			PortBindings: nat.PortMap{
				bolt:    []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: boltPort}},
				browser: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: browserPort}},
			},
			RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		}
}

func dataDirectory(dir string) (string, error) {
	if dir == "" {
		dir = DataDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return abs, nil
}
