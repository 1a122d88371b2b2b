package extract

// ScrollScript scrolls the results container from top to bottom in 200px steps
// so lazily rendered rows materialize. It resolves to false when the container
// is absent and to true one second after reaching the bottom.
const ScrollScript = `new Promise((resolve) => {
  const container = document.getElementById("` + ScrollContainerID + `");
  if (!container) {
    resolve(false);
    return;
  }
  container.scrollTo(0, 0);
  let scrolled = 0;
  const timer = setInterval(() => {
    container.scrollBy(0, 200);
    scrolled += 200;
    if (scrolled >= container.scrollHeight - container.clientHeight) {
      clearInterval(timer);
      setTimeout(() => resolve(true), 1000);
    }
  }, 100);
})`

// NextPageScript clicks the enabled "Next" pagination button, returning whether it was clicked.
const NextPageScript = `(() => {
  const next = Array.from(document.querySelectorAll("button")).find((b) =>
    (b.innerText.trim() === "Next" || b.getAttribute("aria-label") === "Next") &&
    !b.disabled && b.getAttribute("aria-disabled") !== "true");
  if (!next) {
    return false;
  }
  next.click();
  return true;
})()`
