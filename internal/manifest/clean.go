package manifest

import "strings"

// Server-managed metadata fields that never belong in generated artifacts.
var managedMetadataFields = []string{
	"resourceVersion",
	"uid",
	"generation",
	"creationTimestamp",
	"managedFields",
	"selfLink",
	"ownerReferences",
}

// Server- or controller-added annotations stripped from metadata.
var managedAnnotations = []string{
	"kubectl.kubernetes.io/last-applied-configuration",
	"deployment.kubernetes.io/revision",
	"kubernetes.io/change-cause",
	"cloud.google.com/neg",
	"cloud.google.com/neg-status",
	"volume.kubernetes.io/selected-node",
	"pv.kubernetes.io/bind-completed",
}

// Annotations stripped from pod template metadata.
var managedTemplateAnnotations = []string{
	"kubectl.kubernetes.io/restartedAt",
	"kubectl.kubernetes.io/last-applied-configuration",
}

// Labels injected by controllers, stripped wherever they appear.
var managedLabels = []string{
	"pod-template-hash",
	"pod-template-generation",
}

// Clean strips server-managed fields from a fetched object so the remaining
// document describes only the desired state. Mutates obj in place.
func Clean(obj map[string]interface{}) {
	if len(obj) == 0 {
		return
	}

	delete(obj, "status")

	if metadata, ok := obj["metadata"].(map[string]interface{}); ok {
		cleanMetadata(metadata)
	}

	spec, _ := obj["spec"].(map[string]interface{})
	if spec != nil {
		cleanTemplate(spec)
		cleanSelector(spec)
	}

	kind, _ := obj["kind"].(string)
	switch kind {
	case "Service":
		// Headless services keep their clusterIP: "None" is semantic.
		if spec != nil && !strings.HasSuffix(objectName(obj), "-headless") {
			delete(spec, "clusterIP")
			delete(spec, "clusterIPs")
			delete(spec, "loadBalancerIP")
		}
	case "PersistentVolumeClaim":
		if spec != nil {
			delete(spec, "volumeName")
		}
	}
}

func cleanMetadata(metadata map[string]interface{}) {
	for _, field := range managedMetadataFields {
		delete(metadata, field)
	}

	if annotations, ok := metadata["annotations"].(map[string]interface{}); ok {
		for _, a := range managedAnnotations {
			delete(annotations, a)
		}
		if len(annotations) == 0 {
			delete(metadata, "annotations")
		}
	}

	if labels, ok := metadata["labels"].(map[string]interface{}); ok {
		delete(labels, "helm.sh/chart")
		if len(labels) == 0 {
			delete(metadata, "labels")
		}
	}
}

func cleanTemplate(spec map[string]interface{}) {
	template, ok := spec["template"].(map[string]interface{})
	if !ok {
		return
	}
	metadata, ok := template["metadata"].(map[string]interface{})
	if !ok {
		return
	}

	delete(metadata, "creationTimestamp")

	if labels, ok := metadata["labels"].(map[string]interface{}); ok {
		for _, l := range managedLabels {
			delete(labels, l)
		}
	}
	if annotations, ok := metadata["annotations"].(map[string]interface{}); ok {
		for _, a := range managedTemplateAnnotations {
			delete(annotations, a)
		}
		if len(annotations) == 0 {
			delete(metadata, "annotations")
		}
	}
}

func cleanSelector(spec map[string]interface{}) {
	selector, ok := spec["selector"].(map[string]interface{})
	if !ok {
		return
	}
	if matchLabels, ok := selector["matchLabels"].(map[string]interface{}); ok {
		for _, l := range managedLabels {
			delete(matchLabels, l)
		}
	}
}

func objectName(obj map[string]interface{}) string {
	metadata, ok := obj["metadata"].(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := metadata["name"].(string)
	return name
}
